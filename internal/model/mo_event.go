package model

import "strings"

// MOEvent is a single inbound USSD gateway event extracted from an InsertMO envelope.
// Each event is independent; the bridge keeps no session state across turns.
type MOEvent struct {
	RequestType   string
	MSISDN        string
	SessionID     string
	TransactionID string
	GatewayID     string
	Msg           string // optional free-form input; meaning depends on RequestType
}

// ValidationError lists the required InsertMO fields that were empty or absent.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// Validate checks that every required field is non-empty. Msg is optional.
func (e MOEvent) Validate() error {
	var missing []string
	if e.RequestType == "" {
		missing = append(missing, "requesttype")
	}
	if e.MSISDN == "" {
		missing = append(missing, "msisdn")
	}
	if e.SessionID == "" {
		missing = append(missing, "sessionid")
	}
	if e.TransactionID == "" {
		missing = append(missing, "transactionid")
	}
	if e.GatewayID == "" {
		missing = append(missing, "ussdgw_id")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}
