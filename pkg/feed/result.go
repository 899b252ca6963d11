package feed

// Result is the standardised outcome of one feed round trip. The numbering matches
// the codes reported by earlier firmware so diagnostics stay comparable.
type Result int

const (
	Success Result = iota
	Incomplete
	Unauthorized
	HTTPError
	Timeout
	NoResponse
	DataError
	NoChange
	ConnectionTimeout
)

func (r Result) String() string {
	switch r {
	case Success:
		return "SUCCESS"
	case NoChange:
		return "SUCCESS (NO CHANGES)"
	case DataError:
		return "DATA ERROR"
	case Unauthorized:
		return "UNAUTHORISED"
	case HTTPError:
		return "HTTP ERROR"
	case Incomplete:
		return "INCOMPLETE DATA RECEIVED"
	case NoResponse:
		return "NO RESPONSE FROM SERVER"
	case Timeout:
		return "TIMEOUT WAITING FOR SERVER"
	case ConnectionTimeout:
		return "CONNECTION TIMEOUT"
	default:
		return "OTHER ERROR"
	}
}

// Succeeded is true when the current record is valid after the fetch.
func (r Result) Succeeded() bool {
	return r == Success || r == NoChange
}

// Transient failures are retried on the scheduler's back-off cadence.
func (r Result) Transient() bool {
	switch r {
	case HTTPError, Timeout, NoResponse, Incomplete, ConnectionTimeout, DataError:
		return true
	default:
		return false
	}
}
