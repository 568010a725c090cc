package service

import "errors"

// ErrUnknownStage is returned for a stage name the pipeline does not run.
var ErrUnknownStage = errors.New("unknown stage")
