package ai

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	in   *bedrockruntime.InvokeModelInput
	body string
	err  error
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func TestBedrockGenerateJSONPrefill(t *testing.T) {
	inv := &fakeInvoker{body: `{"id":"m","content":[{"type":"text","text":"\"missingPoints\":[\"x\"]}"}],"stop_reason":"end_turn"}`}
	p := &bedrockProvider{client: inv, defaultModel: defaultBedrockModel}

	msg, err := p.Generate(context.Background(),
		BuildConversation("sys", Message{Role: RoleUser, Content: "hi"}), DefaultGenerateOptions())

	require.NoError(t, err)
	assert.Equal(t, `{"missingPoints":["x"]}`, msg.Content)
	assert.Equal(t, defaultBedrockModel, aws.ToString(inv.in.ModelId))

	var req anthropicRequest
	require.NoError(t, json.Unmarshal(inv.in.Body, &req))
	assert.Equal(t, anthropicVersion, req.AnthropicVersion)
	assert.Equal(t, "sys", req.System)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "assistant", req.Messages[1].Role)
	assert.Equal(t, "{", req.Messages[1].Content[0].Text)
}

func TestBedrockInvokeError(t *testing.T) {
	p := &bedrockProvider{client: &fakeInvoker{err: errors.New("throttled")}, defaultModel: "m"}

	_, err := p.Generate(context.Background(), nil, GenerateOptions{})

	assert.Equal(t, KindTransport, KindOf(err))
}
