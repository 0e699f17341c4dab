package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/bizmap/internal/query"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Filter and classify the dataset",
	Long:  "Runs one query against the configured dataset and prints the colored records, legend, and viewport.",
	Example: `  bizmap query --province 서울 --district 강남구 --color-by credit
  bizmap query --criteria saved.yaml --search 반도체 --format yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		req, err := buildRequest(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")

		env, err := initEnv(ctx, "query")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.Submit(ctx, req)
		if err != nil {
			return eris.Wrap(err, "query")
		}
		return writeStructured(os.Stdout, format, res)
	},
}

// buildRequest starts from the --criteria file, if any, and overlays every
// flag the user set explicitly.
func buildRequest(cmd *cobra.Command) (query.Request, error) {
	var req query.Request
	if path, _ := cmd.Flags().GetString("criteria"); path != "" {
		loaded, err := query.LoadRequest(path)
		if err != nil {
			return query.Request{}, err
		}
		req = loaded
	}

	flags := cmd.Flags()
	overlay := []struct {
		name string
		dst  *string
	}{
		{"province", &req.Criteria.Province},
		{"district", &req.Criteria.District},
		{"size", &req.Criteria.SizeClass},
		{"credit", &req.Criteria.CreditRating},
		{"search", &req.Criteria.SearchText},
		{"color-by", &req.ColorBy},
	}
	for _, o := range overlay {
		if flags.Changed(o.name) {
			*o.dst, _ = flags.GetString(o.name)
		}
	}
	return req, nil
}

func init() {
	addQueryFlags(queryCmd.Flags())
	rootCmd.AddCommand(queryCmd)
}

func addQueryFlags(fs *pflag.FlagSet) {
	fs.String("province", "", "province to filter by (ALL for every province)")
	fs.String("district", "", "city, district, or county within the province")
	fs.String("size", "", "company size class")
	fs.String("credit", "", "credit rating")
	fs.String("search", "", "literal text matched against name, address, products, and other text columns")
	fs.String("color-by", "", "classification attribute: size, credit, cashflow, industry, none")
	fs.String("criteria", "", "YAML file with saved criteria")
	fs.String("format", formatJSON, "output format: json or yaml")
}
