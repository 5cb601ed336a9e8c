package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mailmerge/internal/model"
)

var (
	requestFile         string
	tokenFiles          []string
	recipientTokenFiles []string
	outputFormat        string
	strict              bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Resolve a request file",
	Long: `Resolve an EmailSetup request read from a YAML or JSON file.

Token files hold a flat name: value map. They supply defaults: they
only add tags the request does not define (compared case-insensitively),
and earlier files win over later ones.

Example:
  mailmerge render -f request.yaml --tokens defaults.yaml
  mailmerge render -f request.json --recipient-tokens directory.yaml --strict`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := loadRequest(requestFile)
		if err != nil {
			return err
		}

		if err := applyTokenFiles(&req.Tokens, tokenFiles); err != nil {
			return err
		}
		if err := applyTokenFiles(&req.RecipientTokens, recipientTokenFiles); err != nil {
			return err
		}

		msg := req.Resolve()
		logger.Info("Resolved template", "tokens", len(req.Tokens), "recipient_tokens", len(req.RecipientTokens))

		if unresolved := msg.Unresolved(); len(unresolved) > 0 {
			if strict {
				return fmt.Errorf("unresolved tags: %s", strings.Join(unresolved, " "))
			}
			logger.Warn("Unresolved tags left in output", "tags", strings.Join(unresolved, " "))
		}

		return writeResponse(cmd.OutOrStdout(), model.NewEmailResponse(msg), outputFormat)
	},
}

func init() {
	renderCmd.Flags().StringVarP(&requestFile, "file", "f", "", "request file (YAML or JSON, - for stdin)")
	renderCmd.Flags().StringArrayVar(&tokenFiles, "tokens", nil, "default tokens file (repeatable)")
	renderCmd.Flags().StringArrayVar(&recipientTokenFiles, "recipient-tokens", nil, "default recipient tokens file (repeatable)")
	renderCmd.Flags().StringVarP(&outputFormat, "output", "o", "json", "output format (json, yaml)")
	renderCmd.Flags().BoolVar(&strict, "strict", false, "fail if any tag is left unresolved")
	_ = renderCmd.MarkFlagRequired("file")
}

// loadRequest reads and validates a request file. JSON documents are decoded
// the way the HTTP API decodes them: property names match case-insensitively
// and unknown fields are rejected. Anything else is parsed as YAML.
func loadRequest(path string) (*model.EmailRequest, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}

	var req model.EmailRequest
	if isJSON(data) {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return nil, fmt.Errorf("failed to parse request %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request %s: %w", path, err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request %s: %w", path, err)
	}
	return &req, nil
}

// applyTokenFiles adds tags from each file in order, skipping names dst
// already defines in any letter case.
func applyTokenFiles(dst *map[string]string, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read tokens %s: %w", path, err)
		}

		var tokens map[string]string
		if err := yaml.Unmarshal(data, &tokens); err != nil {
			return fmt.Errorf("failed to parse tokens %s: %w", path, err)
		}
		if *dst == nil {
			*dst = map[string]string{}
		}
		defined := make(map[string]bool, len(*dst))
		for name := range *dst {
			defined[strings.ToLower(name)] = true
		}
		for name := range tokens {
			if defined[strings.ToLower(name)] {
				delete(tokens, name)
			}
		}
		if len(tokens) == 0 {
			continue
		}

		if err := mergo.Merge(dst, tokens); err != nil {
			return fmt.Errorf("failed to merge tokens %s: %w", path, err)
		}
		logger.Debug("Merged token file", "path", path, "tokens", len(tokens))
	}
	return nil
}

func writeResponse(w io.Writer, resp model.EmailResponse, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(resp)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func isJSON(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte("{"))
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
