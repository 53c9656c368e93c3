package store

import "deskline/internal/models"

var transitionMap = map[string][]string{
	"call_next":   {models.StatusWaiting},
	"skip":        {models.StatusServing},
	"transfer":    {models.StatusServing},
	"complete":    {models.StatusServing},
	"previous":    {models.StatusCompleted, models.StatusSkipped},
	"requeue_all": {models.StatusSkipped},
	"cancel":      {models.StatusWaiting},
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
