package decision

// Decision is the classification result for one inbound event: the response code
// forwarded to the partner and the text shown to the subscriber.
type Decision struct {
	ResponseType    string
	ResponseMessage string
}

// Fallback is the legacy pre-classification default. Classify never returns it
// because its catch-all case wins; it is kept for parity with the original bridge.
var Fallback = Decision{ResponseType: "103", ResponseMessage: "Invalid request. Please try again."}

// Classify maps (requestType, msg) to a response decision. Pure, no I/O.
// msg is only consulted for requestType "101" (menu input).
func Classify(requestType, msg string) Decision {
	switch requestType {
	case "100":
		return Decision{ResponseType: "202", ResponseMessage: "Welcome to eCommerce"}
	case "101":
		switch msg {
		case "1":
			return Decision{ResponseType: "202", ResponseMessage: "Please enter your 4-digit PIN to create your account."}
		case "2":
			return Decision{ResponseType: "202", ResponseMessage: "Log in process initiated."}
		default:
			return Decision{ResponseType: "104", ResponseMessage: "Invalid input. Please try again."}
		}
	case "201":
		return Decision{ResponseType: "201", ResponseMessage: "Thank you for using our service!"}
	case "204":
		return Decision{ResponseType: "204", ResponseMessage: "Invalid request."}
	default:
		return Decision{ResponseType: "104", ResponseMessage: "General error, please try again."}
	}
}
