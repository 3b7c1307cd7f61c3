package server

import (
	"fmt"
	"io"
	"os"
)

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.writeServerInfo(os.Stdout)
}

func (s *Server) writeServerInfo(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Available endpoints:")
	_, _ = fmt.Fprintln(w, "  GET    /health          - Health check")
	_, _ = fmt.Fprintln(w, "  GET    /stats           - Server statistics")
	_, _ = fmt.Fprintln(w, "  POST   /parse           - Parse a resume upload")
	_, _ = fmt.Fprintln(w, "  POST   /jobspec         - Extract a job specification")
	_, _ = fmt.Fprintln(w, "  POST   /tailor          - Tailor a parsed resume")
	_, _ = fmt.Fprintln(w, "  POST   /resumes         - Parse, tailor and save a resume")
	_, _ = fmt.Fprintln(w, "  GET    /resumes/{slug}  - Fetch a saved resume")
	_, _ = fmt.Fprintln(w, "  PUT    /resumes/{id}    - Edit a saved resume")
	_, _ = fmt.Fprintln(w, "  DELETE /resumes/{id}    - Delete a saved resume")

	if n := s.APIKeys.Len(); n > 0 {
		_, _ = fmt.Fprintf(w, "API authentication: ENABLED (%d keys configured)\n", n)
	} else {
		_, _ = fmt.Fprintln(w, "API authentication: DISABLED (no API keys configured)")
		_, _ = fmt.Fprintln(w, "WARNING: API endpoints are publicly accessible!")
	}

	if s.MaxRequestSize > 0 {
		_, _ = fmt.Fprintf(w, "Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		_, _ = fmt.Fprintln(w, "Request size limit: DISABLED")
	}

	if s.RateLimit != nil && s.RateLimit.Enabled {
		_, _ = fmt.Fprintf(w, "Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
	} else {
		_, _ = fmt.Fprintln(w, "Rate limiting: DISABLED")
	}

	_, _ = fmt.Fprintf(w, "AI parsing: %t, job tailoring: %t\n", s.Flags.AIParsingEnabled, s.Flags.JobTailoringEnabled)
}
