package transcript

import (
	"encoding/json"
	"strings"
)

// Event is one decoded transcript record. The set of implementations is
// closed: every record decodes to exactly one of the types below.
type Event interface {
	isEvent()
}

// SessionMeta carries the session identity. Fields are empty when the record
// did not provide them (or provided a non-string value).
type SessionMeta struct {
	ID         string
	CreatedAt  int64
	HasCreated bool
	Cwd        string
	CLIVersion string
}

// Message is a user or assistant turn with its visible text already extracted.
type Message struct {
	Role string
	Text string
}

// ToolCall is a function_call or custom_tool_call record.
type ToolCall struct {
	Name   string
	CallID string
	Text   string
	Custom bool
}

// ToolOutput is a function_call_output or custom_tool_call_output record.
type ToolOutput struct {
	CallID string
	Text   string
	Custom bool
}

// Ignored is any record kind the indexer does not consume.
type Ignored struct {
	Type string
}

func (SessionMeta) isEvent() {}
func (Message) isEvent()     {}
func (ToolCall) isEvent()    {}
func (ToolOutput) isEvent()  {}
func (Ignored) isEvent()     {}

// Record is the envelope of one transcript line.
type Record struct {
	Timestamp json.RawMessage `json:"timestamp"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// object is a loosely-typed JSON object whose fields are decoded on demand.
type object map[string]json.RawMessage

func decodeObject(raw []byte) object {
	if len(raw) == 0 {
		return object{}
	}
	var obj object
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return object{}
	}
	return obj
}

// str returns the field as a string. Missing, null and non-string values
// report ok=false.
func (o object) str(key string) (string, bool) {
	raw, ok := o[key]
	if !ok || len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (o object) strOrEmpty(key string) string {
	s, _ := o.str(key)
	return s
}

// Decode maps one record onto its Event variant.
func Decode(rec Record) Event {
	payload := decodeObject(rec.Payload)

	switch rec.Type {
	case "session_meta":
		return decodeSessionMeta(payload)
	case "response_item":
		return decodeResponseItem(payload)
	default:
		return Ignored{Type: rec.Type}
	}
}

func decodeSessionMeta(p object) Event {
	meta := SessionMeta{
		ID:         p.strOrEmpty("id"),
		Cwd:        p.strOrEmpty("cwd"),
		CLIVersion: p.strOrEmpty("cli_version"),
	}
	if ts, ok := p.str("timestamp"); ok {
		meta.CreatedAt, meta.HasCreated = ParseTimestamp(ts)
	}
	return meta
}

func decodeResponseItem(p object) Event {
	kind := p.strOrEmpty("type")
	switch kind {
	case "message":
		role := p.strOrEmpty("role")
		if role != "user" && role != "assistant" {
			return Ignored{Type: "message:" + role}
		}
		return Message{Role: role, Text: messageText(p["content"])}

	case "function_call":
		name := p.strOrEmpty("name")
		return ToolCall{
			Name:   name,
			CallID: p.strOrEmpty("call_id"),
			Text:   functionCallText(name, p["arguments"]),
		}

	case "function_call_output":
		return ToolOutput{
			CallID: p.strOrEmpty("call_id"),
			Text:   p.strOrEmpty("output"),
		}

	case "custom_tool_call":
		return ToolCall{
			Name:   p.strOrEmpty("name"),
			CallID: p.strOrEmpty("call_id"),
			Text:   p.strOrEmpty("input"),
			Custom: true,
		}

	case "custom_tool_call_output":
		return ToolOutput{
			CallID: p.strOrEmpty("call_id"),
			Text:   unwrapOutput(p.strOrEmpty("output")),
			Custom: true,
		}

	default:
		return Ignored{Type: kind}
	}
}

// messageText joins the visible text items of a message content array.
func messageText(raw json.RawMessage) string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return ""
	}

	var parts []string
	for _, item := range items {
		obj := decodeObject(item)
		var txt string
		switch obj.strOrEmpty("type") {
		case "input_text", "output_text":
			txt = obj.strOrEmpty("text")
		case "tool_result":
			txt = obj.strOrEmpty("output")
			if txt == "" {
				txt = obj.strOrEmpty("text")
			}
		}
		if strings.TrimSpace(txt) != "" {
			parts = append(parts, txt)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// functionCallText prefers the shell command of exec_command calls and falls
// back to the raw argument string.
func functionCallText(name string, raw json.RawMessage) string {
	var args string
	if len(raw) > 0 && raw[0] == '"' {
		_ = json.Unmarshal(raw, &args)
	} else if len(raw) > 0 && raw[0] == '{' {
		args = string(raw)
	}

	if name == "exec_command" {
		if cmd := strings.TrimSpace(decodeObject([]byte(args)).strOrEmpty("cmd")); cmd != "" {
			return cmd
		}
	}
	return args
}

// unwrapOutput returns the inner "output" string when out is itself a JSON
// object carrying one; otherwise out is returned unchanged.
func unwrapOutput(out string) string {
	trimmed := strings.TrimSpace(out)
	if !strings.HasPrefix(trimmed, "{") {
		return out
	}
	if inner, ok := decodeObject([]byte(trimmed)).str("output"); ok {
		return inner
	}
	return out
}
