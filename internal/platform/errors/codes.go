// Package errors provides structured error handling with i18n support.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Trap errors
	CodeTrapNotFound          Code = "TRAP_NOT_FOUND"
	CodeTrapAlreadyTriggered  Code = "TRAP_ALREADY_TRIGGERED"
	CodeTrapBusy              Code = "TRAP_BUSY"
	CodeTrapNoTarget          Code = "TRAP_NO_TARGET"
	CodeTrapNoActor           Code = "TRAP_NO_ACTOR"
	CodeTrapPersistence       Code = "TRAP_PERSISTENCE"
	CodeTrapUnknownArchetype  Code = "TRAP_UNKNOWN_ARCHETYPE"
	CodeTrapInvalidDefinition Code = "TRAP_INVALID_DEFINITION"

	// Dice errors
	CodeDiceMissing        Code = "DICE_MISSING"
	CodeDiceInvalidSpec    Code = "DICE_INVALID_SPEC"
	CodeDiceInvalidFormula Code = "DICE_INVALID_FORMULA"

	// Participant errors
	CodeParticipantUnauthenticated Code = "PARTICIPANT_UNAUTHENTICATED"
	CodeParticipantForbidden       Code = "PARTICIPANT_FORBIDDEN"

	// Settings errors
	CodeSettingsInvalidValue Code = "SETTINGS_INVALID_VALUE"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// BadRequest - validation failures, bad input
	case CodeTrapUnknownArchetype,
		CodeTrapInvalidDefinition,
		CodeTrapNoTarget,
		CodeDiceMissing,
		CodeDiceInvalidSpec,
		CodeDiceInvalidFormula,
		CodeSettingsInvalidValue:
		return http.StatusBadRequest

	// Conflict - state doesn't allow operation
	case CodeTrapAlreadyTriggered,
		CodeTrapBusy:
		return http.StatusConflict

	// NotFound - resource doesn't exist
	case CodeTrapNotFound,
		CodeTrapNoActor:
		return http.StatusNotFound

	case CodeParticipantUnauthenticated:
		return http.StatusUnauthorized
	case CodeParticipantForbidden:
		return http.StatusForbidden

	default:
		return http.StatusInternalServerError
	}
}
