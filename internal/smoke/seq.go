package smoke

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// VerificationError reports that Seq did not confirm ingestion.
type VerificationError struct {
	Reason string
	Err    error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verification: %s: %v", e.Reason, e.Err)
	}
	return "verification: " + e.Reason
}
func (e *VerificationError) Unwrap() error { return e.Err }

// SeqClient queries the Seq events endpoint to confirm that the injected
// messages made it all the way through the subject container.
type SeqClient struct {
	// BaseURL of the Seq API published by the environment,
	// e.g. http://localhost:5342.
	BaseURL string
	HTTP    *http.Client
}

func (c *SeqClient) client() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// Verify succeeds only when the events endpoint returns a non-empty array.
func (c *SeqClient) Verify() error {
	url := c.BaseURL + "/api/events?clef"
	resp, err := c.client().Get(url)
	if err != nil {
		return &VerificationError{Reason: "querying " + url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &VerificationError{Reason: fmt.Sprintf("%s returned status %d", url, resp.StatusCode)}
	}

	var events []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return &VerificationError{Reason: "decoding events response", Err: err}
	}
	if len(events) == 0 {
		return &VerificationError{Reason: "no events ingested"}
	}
	return nil
}
