package queue

import "github.com/google/uuid"

func newTaskID() string {
	return uuid.NewString()
}
