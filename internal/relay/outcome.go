package relay

// Status is the coarse result of one publish attempt.
type Status string

// Outcome statuses.
const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Outcome is either Success{detail} or Failure{reason}.
type Outcome struct {
	status Status
	text   string
}

// Succeeded builds a success outcome. detail may be empty.
func Succeeded(detail string) Outcome {
	return Outcome{status: StatusSuccess, text: detail}
}

// Failed builds a failure outcome.
func Failed(reason string) Outcome {
	return Outcome{status: StatusFailure, text: reason}
}

// Status returns the outcome tag.
func (o Outcome) Status() Status { return o.status }

// OK reports whether the platform accepted the content.
func (o Outcome) OK() bool { return o.status == StatusSuccess }

// Detail is the success note or the failure reason.
func (o Outcome) Detail() string { return o.text }

// Text renders the outcome the way API clients have always seen it:
// "Success", "Success - <detail>" or "Failed - <reason>".
func (o Outcome) Text() string {
	if o.OK() {
		if o.text == "" {
			return "Success"
		}
		return "Success - " + o.text
	}
	return "Failed - " + o.text
}

// Result pairs a platform with its outcome.
type Result struct {
	Platform Platform
	Outcome  Outcome
}

// String renders "<Label>: <outcome text>".
func (r Result) String() string {
	return r.Platform.Label() + ": " + r.Outcome.Text()
}

// Report aggregates the results of one submission in dispatch order.
type Report struct {
	SubmissionID string
	Results      []Result
}

// Lines returns the rendered result strings.
func (r Report) Lines() []string {
	lines := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		lines = append(lines, res.String())
	}
	return lines
}
