// Package main provides an advisor plugin that revises verdicts based on how
// the patient is framed by the camera.
//
// Build it next to its manifest:
//
//	go build -o plugins/framing-advisor/framing-advisor ./plugins/framing-advisor
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ayusman/posecoach/internal/advisor"
)

func main() {
	var req advisor.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(advisor.Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	if req.Action != "advise" {
		writeResponse(advisor.Response{Error: fmt.Sprintf("unknown action: %s", req.Action)})
		return
	}

	cfg := defaultConfig()
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(advisor.Response{Error: fmt.Sprintf("failed to parse config: %v", err)})
			return
		}
	}

	v := advise(cfg, req.Input)
	writeResponse(advisor.Response{Success: true, Verdict: &v})
}

func writeResponse(resp advisor.Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
