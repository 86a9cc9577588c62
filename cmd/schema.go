package cmd

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"claimdesk/internal/domain/claim"
	"claimdesk/internal/errs"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the claim document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		raw, err := claimDocumentSchema()
		if err != nil {
			return err
		}
		if _, err := cmd.OutOrStdout().Write(append(raw, '\n')); err != nil {
			return errs.Wrap(err, "write schema output")
		}
		return nil
	},
}

func claimDocumentSchema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		// Only fields tagged required are required; the rest may be empty.
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(&claim.Claim{})
	schema.Title = "Claim"
	schema.Description = "Customer claim tracked through the 8D disciplines."

	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, errs.Wrap(err, "marshal claim schema")
	}
	return raw, nil
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
