package hue

import (
	"fmt"
)

// NetworkError reports a transport level failure: the connection could not be
// made, a socket could not be bound, or the peer answered with a non-2xx status.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError reports a response body that could not be understood.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed response during %s: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ErrorCode is a Hue v1 API error type.
type ErrorCode int

// Error codes documented by the Hue v1 API.
const (
	// Generic errors
	ErrUnauthorizedUser              ErrorCode = 1
	ErrBodyContainsInvalidJSON       ErrorCode = 2
	ErrResourceNotAvailable          ErrorCode = 3
	ErrMethodNotAvailableForResource ErrorCode = 4
	ErrMissingParametersInBody       ErrorCode = 5
	ErrParameterNotAvailable         ErrorCode = 6
	ErrInvalidValueForParameter      ErrorCode = 7
	ErrParameterIsNotModifiable      ErrorCode = 8
	ErrTooManyItemsInList            ErrorCode = 11
	ErrPortalConnectionRequired      ErrorCode = 12
	ErrInternalError                 ErrorCode = 901

	// Command specific errors
	ErrLinkButtonNotPressed              ErrorCode = 101
	ErrDHCPCannotBeDisabled              ErrorCode = 110
	ErrInvalidUpdateState                ErrorCode = 111
	ErrDeviceIsSetToOff                  ErrorCode = 201
	ErrGroupTableFull                    ErrorCode = 301
	ErrDeviceGroupTableFull              ErrorCode = 302
	ErrDeviceIsUnreachable               ErrorCode = 304
	ErrGroupTypeNotModifiable            ErrorCode = 305
	ErrLightAlreadyUsed                  ErrorCode = 306
	ErrSceneCouldNotBeCreated            ErrorCode = 401
	ErrSceneBufferFull                   ErrorCode = 402
	ErrSceneCouldNotBeRemoved            ErrorCode = 403
	ErrSensorTypeNotAllowed              ErrorCode = 501
	ErrSensorListFull                    ErrorCode = 502
	ErrRuleEngineFull                    ErrorCode = 601
	ErrConditionError                    ErrorCode = 607
	ErrActionError                       ErrorCode = 608
	ErrUnableToActivate                  ErrorCode = 609
	ErrScheduleListFull                  ErrorCode = 701
	ErrScheduleTimezoneNotValid          ErrorCode = 702
	ErrScheduleCannotSetTimeAndLocalTime ErrorCode = 703
	ErrCannotCreateSchedule              ErrorCode = 704
	ErrCannotEnableScheduleTimeInPast    ErrorCode = 705
	ErrCommandError                      ErrorCode = 706
	ErrSourceModelInvalid                ErrorCode = 801
	ErrSourceFactoryNew                  ErrorCode = 802
	ErrInvalidState                      ErrorCode = 803
)

var errorCodeNames = map[ErrorCode]string{
	ErrUnauthorizedUser:                  "unauthorized user",
	ErrBodyContainsInvalidJSON:           "body contains invalid JSON",
	ErrResourceNotAvailable:              "resource not available",
	ErrMethodNotAvailableForResource:     "method not available for resource",
	ErrMissingParametersInBody:           "missing parameters in body",
	ErrParameterNotAvailable:             "parameter not available",
	ErrInvalidValueForParameter:          "invalid value for parameter",
	ErrParameterIsNotModifiable:          "parameter is not modifiable",
	ErrTooManyItemsInList:                "too many items in list",
	ErrPortalConnectionRequired:          "portal connection required",
	ErrInternalError:                     "internal error",
	ErrLinkButtonNotPressed:              "link button not pressed",
	ErrDHCPCannotBeDisabled:              "DHCP cannot be disabled",
	ErrInvalidUpdateState:                "invalid updatestate",
	ErrDeviceIsSetToOff:                  "device is set to off",
	ErrGroupTableFull:                    "group could not be created, group table full",
	ErrDeviceGroupTableFull:              "device could not be added to group, group table full",
	ErrDeviceIsUnreachable:               "device is unreachable",
	ErrGroupTypeNotModifiable:            "update or delete group of this type not allowed",
	ErrLightAlreadyUsed:                  "light already used",
	ErrSceneCouldNotBeCreated:            "scene could not be created",
	ErrSceneBufferFull:                   "scene could not be created, buffer full",
	ErrSceneCouldNotBeRemoved:            "scene could not be removed",
	ErrSensorTypeNotAllowed:              "not allowed to create sensor type",
	ErrSensorListFull:                    "sensor list is full",
	ErrRuleEngineFull:                    "rule engine full",
	ErrConditionError:                    "condition error",
	ErrActionError:                       "action error",
	ErrUnableToActivate:                  "unable to activate",
	ErrScheduleListFull:                  "schedule list is full",
	ErrScheduleTimezoneNotValid:          "schedule time-zone not valid",
	ErrScheduleCannotSetTimeAndLocalTime: "schedule cannot set time and local time",
	ErrCannotCreateSchedule:              "cannot create schedule",
	ErrCannotEnableScheduleTimeInPast:    "cannot enable schedule, time is in the past",
	ErrCommandError:                      "command error",
	ErrSourceModelInvalid:                "source model invalid",
	ErrSourceFactoryNew:                  "source factory new",
	ErrInvalidState:                      "invalid state",
}

// Known reports whether the code is part of the documented error table.
func (c ErrorCode) Known() bool {
	_, ok := errorCodeNames[c]
	return ok
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("error %d", int(c))
}

// APIError is an error object reported by the bridge inside a 200 response.
type APIError struct {
	Type        ErrorCode `json:"type"`
	Address     string    `json:"address"`
	Description string    `json:"description"`
}

func (e *APIError) Error() string {
	if e.Address != "" {
		return fmt.Sprintf("hue bridge error %d on %s: %s", int(e.Type), e.Address, e.Description)
	}
	return fmt.Sprintf("hue bridge error %d: %s", int(e.Type), e.Description)
}

// Is matches another *APIError by type, so errors.Is(err, &APIError{Type: ErrUnauthorizedUser})
// works regardless of address and description.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}
