package engine

import (
	"context"
	"strings"

	"github.com/kart-io/memoryctl/internal/model"
	"github.com/kart-io/memoryctl/pkg/errors"
)

// sensitivitySystemPrompt is the synthesis prompt shared by Remember's
// per-write classification and the batch Classify operation.
const sensitivitySystemPrompt = `You classify a single memory's sensitivity.
Reply with exactly one line: "<level>: <reason>", where level is one of
safe, sensitive, or critical. critical means secrets, credentials, or
content that could cause real-world harm if leaked. sensitive means
personal or private information that isn't critical. safe means neither.`

// classifyContent calls the Synthesizer with the sensitivity prompt and
// parses its "<level>: <reason>" reply. A nil Synthesizer or an
// unparsable reply both degrade to (unknown, "", nil) rather than an
// error; classification is best-effort everywhere it is invoked.
func (e *Engine) classifyContent(ctx context.Context, content string) (model.Sensitivity, string, error) {
	if e.Synth == nil {
		return model.SensitivityUnknown, "", nil
	}
	sctx, cancel := e.synthCtx(ctx)
	defer cancel()
	reply, err := e.Synth.Synthesize(sctx, sensitivitySystemPrompt, content, 64, "")
	if err != nil {
		return model.SensitivityUnknown, "", errors.ErrUpstream.WithCause(err)
	}
	return parseSensitivityReply(reply)
}

func parseSensitivityReply(reply string) (model.Sensitivity, string, error) {
	line := strings.TrimSpace(reply)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	parts := strings.SplitN(line, ":", 2)
	level := model.Sensitivity(strings.ToLower(strings.TrimSpace(parts[0])))
	reason := ""
	if len(parts) == 2 {
		reason = strings.TrimSpace(parts[1])
	}
	switch level {
	case model.SensitivitySafe, model.SensitivitySensitive, model.SensitivityCritical:
		return level, reason, nil
	default:
		return model.SensitivityUnknown, "", nil
	}
}
