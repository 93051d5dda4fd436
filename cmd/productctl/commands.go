package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/abgdnv/catalogadmin/internal/listview"
	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "productctl",
		Short:         "Browse and edit the product catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default config.yaml, or ADMIN_CONFIG_FILE)")
	pf.StringVar(&a.apiURL, "api-url", "", "Product API base URL (overrides productapi.url)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVarP(&a.yes, "yes", "y", false, "answer yes to confirmation prompts")

	root.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newImportCmd(a),
		newExportCmd(a),
	)
	return root
}

func newListCmd(a *app) *cobra.Command {
	var (
		controls listview.Controls
		sortKey  string
		page     int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products with filters, ordering and paging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.view.Load(cmd.Context()); err != nil {
				return a.result(err)
			}
			controls.Sort = listview.SortKey(sortKey)
			a.view.Apply(controls)
			a.view.GoTo(page)
			printTable(cmd, a.view.Render())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&controls.Search, "search", "q", "", "search in brand, model, quality, tags, type, vendor and specs")
	f.StringVar(&controls.Brand, "brand", listview.AnyValue, "brand filter")
	f.StringVar(&controls.Quality, "quality", listview.AnyValue, "quality filter")
	f.StringVar(&sortKey, "sort", string(listview.SortCreatedDesc), "ordering: created_desc, price_asc, price_desc, stock_asc, stock_desc, model_asc")
	f.IntVar(&page, "page", 1, "page number")
	f.IntVar(&controls.PageSize, "page-size", 0, "rows per page: 10, 20, 50 or 100 (default from config)")
	return cmd
}

func printTable(cmd *cobra.Command, t listview.Table) {
	out := cmd.OutOrStdout()
	if t.Empty {
		fmt.Fprintln(out, "No products found")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSKU\tBRAND\tMODEL\tQUALITY\tPRICE\tSTOCK\tACTIVE")
		for _, r := range t.Rows {
			stock := fmt.Sprintf("%d", r.Stock)
			if r.LowStock {
				stock += " (low)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s %s\t%s\t%t\n",
				r.ID, r.SKU, r.BrandLabel, r.Model, r.Quality, r.Price, r.Currency, stock, r.Active)
		}
		_ = w.Flush()
	}
	fmt.Fprintf(out, "Page %s, %d matching\n", t.PageLabel, t.Matches)
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one product as it appears in the edit form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.view.Edit(cmd.Context(), args[0]); err != nil {
				return a.result(err)
			}
			modal := a.view.Modal()
			a.view.Cancel()
			printForm(cmd, modal.Title(), modal.Form)
			return nil
		},
	}
}

func printForm(cmd *cobra.Command, title string, f catalog.Form) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, title)
	w := tabwriter.NewWriter(out, 0, 0, 1, ' ', 0)
	for _, field := range []struct{ name, value string }{
		{"brand", f.Brand},
		{"model", f.Model},
		{"quality", f.Quality},
		{"price", f.Price},
		{"currency", f.Currency},
		{"stock", f.Stock},
		{"vendor", f.Vendor},
		{"photo", f.Photo},
		{"type", f.Type},
		{"tags", f.Tags},
		{"specs", f.Specs},
		{"active", fmt.Sprintf("%t", f.Active)},
	} {
		fmt.Fprintf(w, "%s:\t%s\n", field.name, field.value)
	}
	_ = w.Flush()
}

// formFlags are the edit form fields as command line flags. Only flags given on the
// command line are copied into the form.
type formFlags struct {
	values catalog.Form
}

func (ff *formFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&ff.values.Brand, "brand", "", "brand")
	f.StringVar(&ff.values.Model, "model", "", "model (required)")
	f.StringVar(&ff.values.Quality, "quality", "", "quality (required)")
	f.StringVar(&ff.values.Price, "price", "", "price, a number of zero or more")
	f.StringVar(&ff.values.Stock, "stock", "", "stock, a whole number of zero or more")
	f.StringVar(&ff.values.Currency, "currency", "", "currency code")
	f.StringVar(&ff.values.Vendor, "vendor", "", "vendor")
	f.StringVar(&ff.values.Photo, "photo", "", "photo file name or URL")
	f.StringVar(&ff.values.Type, "type", "", "product type")
	f.StringVar(&ff.values.Tags, "tags", "", "comma separated tags")
	f.StringVar(&ff.values.Specs, "specs", "", "free-form specifications")
	f.BoolVar(&ff.values.Active, "active", true, "whether the product is active")
}

func (ff *formFlags) apply(cmd *cobra.Command, form catalog.Form) catalog.Form {
	f := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if f.Changed(name) {
			*dst = v
		}
	}
	set("brand", &form.Brand, ff.values.Brand)
	set("model", &form.Model, ff.values.Model)
	set("quality", &form.Quality, ff.values.Quality)
	set("price", &form.Price, ff.values.Price)
	set("stock", &form.Stock, ff.values.Stock)
	set("currency", &form.Currency, ff.values.Currency)
	set("vendor", &form.Vendor, ff.values.Vendor)
	set("photo", &form.Photo, ff.values.Photo)
	set("type", &form.Type, ff.values.Type)
	set("tags", &form.Tags, ff.values.Tags)
	set("specs", &form.Specs, ff.values.Specs)
	if f.Changed("active") {
		form.Active = ff.values.Active
	}
	return form
}

func newAddCmd(a *app) *cobra.Command {
	var ff formFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.view.Add()
			form := ff.apply(cmd, a.view.Modal().Form)
			if err := a.view.Save(cmd.Context(), form); err != nil {
				return a.result(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Product created")
			return a.result(nil)
		},
	}
	ff.bind(cmd)
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var ff formFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of a product; fields not given keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.view.Edit(cmd.Context(), args[0]); err != nil {
				return a.result(err)
			}
			form := ff.apply(cmd, a.view.Modal().Form)
			if err := a.view.Save(cmd.Context(), form); err != nil {
				return a.result(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Product %s updated\n", args[0])
			return a.result(nil)
		},
	}
	ff.bind(cmd)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a product after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := a.view.Remove(cmd.Context(), args[0], a.confirm)
			if err != nil {
				return a.result(err)
			}
			if deleted {
				fmt.Fprintf(cmd.OutOrStdout(), "Product %s deleted\n", args[0])
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing deleted")
			}
			return a.result(nil)
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a JSON array of products, merging them into existing ones by SKU",
		Long: "Import a JSON array of products. A product whose SKU matches a stored one adds its " +
			"stock to it and fills in its empty fields; the others are created. Use - to read stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := readProducts(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			summary, err := a.view.Import(cmd.Context(), products)
			if err != nil {
				return a.result(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Import finished: %s\n", summary)
			return a.result(nil)
		},
	}
}

func readProducts(stdin io.Reader, path string) ([]catalog.Product, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var products []catalog.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("%s must hold a JSON array of products: %w", path, err)
	}
	return products, nil
}

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every product as a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			products, err := a.view.Export(cmd.Context())
			if err != nil {
				return a.result(err)
			}
			data, err := json.MarshalIndent(products, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode products: %w", err)
			}
			data = append(data, '\n')
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d products written to %s\n", len(products), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write instead of stdout")
	return cmd
}
