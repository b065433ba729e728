package services

import (
	"errors"
	"manifest-service/internal/domain"
)

// Outcome is the single success/failure report returned by every public
// manifest operation. Callers branch on Success and show Message.
type Outcome struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Kind      domain.Kind `json:"kind,omitempty"`
	Succeeded int         `json:"succeeded,omitempty"`
	Failed    int         `json:"failed,omitempty"`
}

func succeeded(msg string) Outcome {
	return Outcome{Success: true, Message: msg}
}

func failed(err error) Outcome {
	var de *domain.Error
	if errors.As(err, &de) {
		msg := de.Message
		if de.Kind == domain.KindStore && de.Err != nil {
			msg = de.Error()
		}
		return Outcome{Message: msg, Kind: de.Kind}
	}
	return Outcome{Message: err.Error(), Kind: domain.KindStore}
}
