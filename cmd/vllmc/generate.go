package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/vllmc/pkg/vllm"
	"github.com/samcharles93/vllmc/pkg/vocab"
)

var (
	prompt        string
	inputIDs      string
	maxTokens     int64
	temp          float64
	topP          float64
	topK          int64
	minP          float64
	repeatPenalty float64
	seed          int64
	stopSeqs      []string
	ignoreEOS     bool
	requestID     string

	tokenizerPath string
	decode        bool
	showUsage     bool
)

func generateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "prompt",
			Aliases:     []string{"p"},
			Usage:       "prompt text",
			Destination: &prompt,
		},
		&cli.StringFlag{
			Name:        "input-ids",
			Usage:       "comma-separated token ids instead of a text prompt",
			Destination: &inputIDs,
		},
		&cli.Int64Flag{
			Name:        "max-tokens",
			Aliases:     []string{"n"},
			Usage:       "max tokens to generate (0 = server default)",
			Destination: &maxTokens,
		},
		&cli.Float64Flag{
			Name:        "temp",
			Aliases:     []string{"temperature", "t"},
			Usage:       "sampling temperature (-1 = server default)",
			Value:       -1,
			Destination: &temp,
		},
		&cli.Float64Flag{
			Name:        "top-p",
			Aliases:     []string{"top_p"},
			Usage:       "nucleus sampling parameter",
			Destination: &topP,
		},
		&cli.Int64Flag{
			Name:        "top-k",
			Aliases:     []string{"top_k"},
			Usage:       "top-k sampling parameter (0 = disabled)",
			Destination: &topK,
		},
		&cli.Float64Flag{
			Name:        "min-p",
			Aliases:     []string{"min_p"},
			Usage:       "min-p sampling parameter",
			Destination: &minP,
		},
		&cli.Float64Flag{
			Name:        "repetition-penalty",
			Aliases:     []string{"repetition_penalty"},
			Usage:       "repetition penalty (1.0 = disabled)",
			Destination: &repeatPenalty,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "sampling RNG seed (-1 = random)",
			Value:       -1,
			Destination: &seed,
		},
		&cli.StringSliceFlag{
			Name:        "stop",
			Usage:       "stop sequence (repeatable)",
			Destination: &stopSeqs,
		},
		&cli.BoolFlag{
			Name:        "ignore-eos",
			Usage:       "keep generating past the EOS token",
			Destination: &ignoreEOS,
		},
		&cli.StringFlag{
			Name:        "request-id",
			Usage:       "explicit request id (default: client-assigned)",
			Destination: &requestID,
		},
		&cli.StringFlag{
			Name:        "tokenizer",
			Usage:       "tokenizer.json path or model directory, for --decode",
			Destination: &tokenizerPath,
		},
		&cli.BoolFlag{
			Name:        "decode",
			Aliases:     []string{"d"},
			Usage:       "decode token ids to text (requires --tokenizer)",
			Destination: &decode,
		},
		&cli.BoolFlag{
			Name:        "usage",
			Usage:       "print token usage to stderr when done",
			Destination: &showUsage,
		},
	}
}

// buildRequest assembles the generation request from flags.
func buildRequest() (*vllm.Request, error) {
	req := &vllm.Request{
		Prompt:    prompt,
		RequestID: requestID,
	}
	if inputIDs != "" {
		ids, err := parseIDs(inputIDs)
		if err != nil {
			return nil, err
		}
		req.InputIDs = ids
	}
	if req.Prompt == "" && len(req.InputIDs) == 0 {
		return nil, errors.New("a --prompt or --input-ids is required")
	}

	sp := vllm.SamplingParams{
		TopP:              topP,
		TopK:              int(topK),
		MinP:              minP,
		RepetitionPenalty: repeatPenalty,
		Stop:              stopSeqs,
		IgnoreEOS:         ignoreEOS,
	}
	if maxTokens > 0 {
		n := int(maxTokens)
		sp.MaxTokens = &n
	}
	if temp >= 0 {
		sp.Temperature = &temp
	}
	if seed >= 0 {
		sp.Seed = &seed
	}
	req.Sampling = sp
	return req, nil
}

// loadVocab loads the vocabulary for --decode. Without --decode it returns
// nil and output stays in token-id form.
func loadVocab() (*vocab.Vocab, error) {
	if !decode {
		return nil, nil
	}
	if tokenizerPath == "" {
		return nil, errors.New("--decode requires --tokenizer (or tokenizer in the config file)")
	}
	return vocab.ForModel(tokenizerPath)
}

func parseIDs(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad token id %q", p)
		}
		ids = append(ids, n)
	}
	if len(ids) == 0 {
		return nil, errors.New("--input-ids is empty")
	}
	return ids, nil
}

func formatIDs(ids []int) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}

func printUsage(u *vllm.Usage) {
	if !showUsage || u == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "usage: prompt=%d completion=%d total=%d cached=%d\n",
		u.PromptTokens, u.CompletionTokens, u.TotalTokens, u.CachedTokens)
}
