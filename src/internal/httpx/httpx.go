package httpx

import "net/http"

// Doer is the minimal HTTP client interface used across packages.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// UserAgent identifies outbound catalog requests.
const UserAgent = "BookPlatform/1.0"

// AcceptXML is the Accept header sent to catalog and relay endpoints; relays
// frequently rewrite the content type, so anything is accepted as a last resort.
const AcceptXML = "application/xml, text/xml, */*"

// SetUA sets the UserAgent header on the request.
func SetUA(req *http.Request) {
	if req != nil {
		req.Header.Set("User-Agent", UserAgent)
	}
}

// PrepareXML sets the headers every catalog request carries.
func PrepareXML(req *http.Request) {
	if req == nil {
		return
	}
	SetUA(req)
	req.Header.Set("Accept", AcceptXML)
}
