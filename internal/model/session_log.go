package model

import "time"

// SessionLog is the append-only row persisted in ussd_logs for every accepted
// request. Rows are written once and never updated; duplicate
// (sessionid, transactionid) pairs are allowed and simply produce duplicate rows.
type SessionLog struct {
	ID              string    `db:"id"              json:"id"`
	MSISDN          string    `db:"msisdn"          json:"msisdn"`
	SessionID       string    `db:"sessionid"       json:"sessionid"`
	TransactionID   string    `db:"transactionid"   json:"transactionid"`
	GatewayID       string    `db:"ussdgw_id"       json:"ussdgw_id"`
	RequestType     string    `db:"requestType"     json:"requestType"`
	ResponseType    string    `db:"responseType"    json:"responseType"`
	ResponseMessage string    `db:"responseMessage" json:"responseMessage"`
	UserMessage     string    `db:"userMessage"     json:"userMessage"`
	CreatedAt       time.Time `db:"timestamp"       json:"timestamp"`
}
