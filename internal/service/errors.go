package service

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrForbidden         = errors.New("child is not allowed to access this resource")
	ErrValidation        = errors.New("invalid request")
	ErrJudgeUnavailable  = errors.New("answer judge is unavailable")
	ErrNoFreezeAvailable = errors.New("no streak freezes available")
)

func isNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
