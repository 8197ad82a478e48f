// Package speech implements the voice-synthesis Lambda: it resolves
// the right Polly engine for a voice, synthesizes MP3 audio and returns
// it base64-encoded.
package speech

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
)

// PollyAPI is the subset of the Polly client the handler uses. It
// matches *polly.Client so tests can queue fakes.
type PollyAPI interface {
	DescribeVoices(ctx context.Context, params *polly.DescribeVoicesInput, optFns ...func(*polly.Options)) (*polly.DescribeVoicesOutput, error)
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// resolverCacheSize bounds the per-voice engine cache.
const resolverCacheSize = 256

// EngineResolver looks up the engines a voice supports and memoizes the
// answer per voice id. The cache is the only state shared across
// invocations; stale entries are acceptable, a changed voice
// configuration is picked up after a cold start.
type EngineResolver struct {
	api PollyAPI

	mu    sync.Mutex
	cache map[string][]types.Engine
	order []string // insertion order, oldest entry evicted first
}

// NewEngineResolver creates a resolver backed by the given client.
func NewEngineResolver(api PollyAPI) *EngineResolver {
	return &EngineResolver{
		api:   api,
		cache: make(map[string][]types.Engine, resolverCacheSize),
	}
}

// EnginesFor returns the engines the voice supports, or nil when the
// lookup fails or the voice is unknown. Only successful lookups are
// cached, so a transient describe failure does not stick for the
// lifetime of the process.
func (r *EngineResolver) EnginesFor(ctx context.Context, voice, language string) []types.Engine {
	r.mu.Lock()
	if engines, ok := r.cache[voice]; ok {
		r.mu.Unlock()
		return engines
	}
	r.mu.Unlock()

	engines, found := r.describe(ctx, voice, language)
	if !found {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache[voice]; !ok {
		if len(r.order) >= resolverCacheSize {
			delete(r.cache, r.order[0])
			r.order = r.order[1:]
		}
		r.cache[voice] = engines
		r.order = append(r.order, voice)
	}
	return engines
}

// describe lists the voices for the request language (additional
// language codes included, so bilingual voices are found) and scans for
// the requested voice id.
func (r *EngineResolver) describe(ctx context.Context, voice, language string) ([]types.Engine, bool) {
	input := &polly.DescribeVoicesInput{
		IncludeAdditionalLanguageCodes: true,
	}
	if language != "" {
		input.LanguageCode = types.LanguageCode(language)
	}

	for {
		out, err := r.api.DescribeVoices(ctx, input)
		if err != nil {
			return nil, false
		}
		for _, v := range out.Voices {
			if string(v.Id) == voice {
				return v.SupportedEngines, true
			}
		}
		if out.NextToken == nil || *out.NextToken == "" {
			return nil, false
		}
		input.NextToken = out.NextToken
	}
}

// chooseEngine picks the engine parameter for a synthesis call. The
// service default (no explicit engine) wins whenever "standard" is
// supported or nothing is known about the voice; "neural" is requested
// explicitly only for voices that support nothing else.
func chooseEngine(engines []types.Engine) types.Engine {
	if len(engines) == 0 {
		return ""
	}
	neural := false
	for _, e := range engines {
		switch e {
		case types.EngineStandard:
			return ""
		case types.EngineNeural:
			neural = true
		}
	}
	if neural {
		return types.EngineNeural
	}
	return ""
}
