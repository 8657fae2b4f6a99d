package soap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ecomtel/ussd-bridge/internal/model"
)

// DecodeError reports a structurally invalid envelope or a missing InsertMO payload.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode envelope: %s: %v", e.Reason, e.Err)
	}
	return "decode envelope: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeInsertMO extracts the InsertMO payload from an inbound SOAP envelope.
// Lookup ignores namespace prefixes and element-name case: ns2:InsertMO and a
// bare insertmo are equivalent. Unrecognized child elements are ignored.
func DecodeInsertMO(raw []byte) (model.MOEvent, error) {
	var ev model.MOEvent

	dec := xml.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return ev, &DecodeError{Reason: "missing InsertMO payload"}
		}
		if err != nil {
			return ev, &DecodeError{Reason: "malformed XML", Err: err}
		}
		start, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(start.Name.Local, "insertmo") {
			continue
		}
		if err := decodeFields(dec, &ev); err != nil {
			return ev, err
		}
		return ev, nil
	}
}

// decodeFields flattens the direct children of InsertMO into the event struct.
// The decoder is positioned just past the InsertMO start tag.
func decodeFields(dec *xml.Decoder, ev *model.MOEvent) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return &DecodeError{Reason: "unterminated InsertMO payload", Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			val, err := elementText(dec)
			if err != nil {
				return err
			}
			switch strings.ToLower(t.Name.Local) {
			case "requesttype":
				ev.RequestType = val
			case "msisdn":
				ev.MSISDN = val
			case "sessionid":
				ev.SessionID = val
			case "transactionid":
				ev.TransactionID = val
			case "ussdgw_id":
				ev.GatewayID = val
			case "msg":
				ev.Msg = val
			}
		case xml.EndElement:
			// end of InsertMO
			return nil
		}
	}
}

// elementText collects the character data of the current element up to its end
// tag, skipping over any nested elements.
func elementText(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", &DecodeError{Reason: "unterminated field element", Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 1 {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

const ackEnvelope = `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ns2="http://ws.ussd/"><soapenv:Header/><soapenv:Body><ns2:InsertMOResponse><return><errorCode>%d</errorCode></return></ns2:InsertMOResponse></soapenv:Body></soapenv:Envelope>`

// EncodeAck builds the synchronous gateway acknowledgment. The error code only
// states whether the event was accepted for processing (0) or rejected (1); it
// carries no classification result.
func EncodeAck(errorCode int) string {
	return fmt.Sprintf(ackEnvelope, errorCode)
}

// ForwardParams are the fields embedded in the partner-facing envelope.
// ResponseType travels in the partner's requestType element.
type ForwardParams struct {
	Message       string
	MSISDN        string
	SessionID     string
	TransactionID string
	GatewayID     string
	ResponseType  string
	User          string
	Pass          string
}

const forwardEnvelope = `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ws="http://ws.ussd/"><soapenv:Header/><soapenv:Body><ws:InsertMO><InsertMO><msg>%s</msg><msisdn>%s</msisdn><pass>%s</pass><requestType>%s</requestType><sessionid>%s</sessionid><transactionid>%s</transactionid><user>%s</user><ussdgw_id>%s</ussdgw_id></InsertMO></ws:InsertMO></soapenv:Body></soapenv:Envelope>`

// EncodeForward builds the deferred partner envelope. All text nodes are
// XML-escaped so free-form subscriber input cannot break the document.
func EncodeForward(p ForwardParams) string {
	return fmt.Sprintf(forwardEnvelope,
		escape(p.Message),
		escape(p.MSISDN),
		escape(p.Pass),
		escape(p.ResponseType),
		escape(p.SessionID),
		escape(p.TransactionID),
		escape(p.User),
		escape(p.GatewayID),
	)
}

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
