package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/reactorhq/agent/internal/agent"
)

// terminalConfirm implements agent.Confirmer by prompting on stdin/stdout,
// grounded on the teacher's cmd/nexus/config.go promptString/promptBool
// pair: print the question, read one line, default on empty input.
func terminalConfirm(ctx context.Context, req agent.ApprovalRequest) (agent.ApprovalDecision, error) {
	if err := ctx.Err(); err != nil {
		return agent.ApprovalDenied, err
	}
	fmt.Printf("\n--- confirmation required ---\n")
	fmt.Printf("tool:   %s\n", req.ToolName)
	fmt.Printf("reason: %s\n", req.Reason)
	if pretty := prettyArgs(req.Args); pretty != "" {
		fmt.Printf("args:   %s\n", pretty)
	}
	reader := bufio.NewReader(os.Stdin)
	answer := promptString(reader, "Allow this call? (y/n)", "n")
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "y" || answer == "yes" {
		return agent.ApprovalAllowed, nil
	}
	return agent.ApprovalDenied, nil
}

func promptString(reader *bufio.Reader, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}
	text, _ := reader.ReadString('\n')
	text = strings.TrimSpace(text)
	if text == "" {
		return defaultValue
	}
	return text
}

func prettyArgs(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
