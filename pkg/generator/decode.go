package generator

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// replySchema describes the structured payload the system prompt asks the
// model for: a user-facing message plus the inter-agent communication trace.
const replySchema = `{
	"type": "object",
	"required": ["message"],
	"properties": {
		"message": {"type": "string"},
		"agent_communication": {"type": "object"}
	}
}`

var compiledReplySchema = gojsonschema.NewStringLoader(replySchema)

type structuredReply struct {
	Message            string                 `json:"message"`
	AgentCommunication map[string]interface{} `json:"agent_communication"`
}

// DecodeReply turns raw model output into a Reply. Valid structured
// payloads are unpacked; anything else falls back to the raw text variant.
// There is no brace sniffing: the decode either succeeds as a whole or the
// output is treated as plain text.
func DecodeReply(raw string) *Reply {
	result, err := gojsonschema.Validate(compiledReplySchema, gojsonschema.NewStringLoader(raw))
	if err != nil || !result.Valid() {
		return &Reply{Text: raw}
	}

	var structured structuredReply
	if err := json.Unmarshal([]byte(raw), &structured); err != nil {
		log.Warn().Err(err).Msg("Reply passed schema but failed decode, using raw text")
		return &Reply{Text: raw}
	}

	return &Reply{
		Text:       structured.Message,
		Structured: true,
		AgentTrace: structured.AgentCommunication,
	}
}
