// Package main provides the CLI entry point for xlimage-go.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/ukaji3/xlimage-go/pkg/xlimage"
	"github.com/ukaji3/xlimage-go/pkg/xlimage/gate"
	"github.com/ukaji3/xlimage-go/pkg/xlimage/output"
	"github.com/ukaji3/xlimage-go/pkg/xlimage/parser"
)

const version = "0.1.0"

var (
	outputDir      string
	sheetName      string
	columns        string
	imageIDs       string
	floatingOnly   bool
	noFloating     bool
	requireNetwork string
	networkTimeout time.Duration

	configPath   string
	namingMode   string
	prefix       string
	withDate     bool
	dateLayout   string
	withSequence bool
	digits       int
	order        string
	nameColumns  string
	separator    string
	manifestPath string
	pretty       bool
	overwrite    bool
	parallelism  int
	listAsJSON   bool
	quiet        bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "xlimage [input.xlsx]",
		Short: "Extract images from Excel workbooks",
		Long: `xlimage extracts embedded (DISPIMG cell) images and floating (drawing)
images from .xlsx workbooks and writes them to a directory.`,
		Args:         cobra.ExactArgs(1),
		RunE:         run,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&sheetName, "sheet", "", "Restrict to one sheet (exact name)")
	pf.StringVar(&columns, "columns", "", `Restrict to columns of --sheet, e.g. "A", "A,C", "A-C" or "3"`)
	pf.StringVar(&imageIDs, "ids", "", "Comma-separated embedded image IDs to extract")
	pf.BoolVar(&floatingOnly, "floating-only", false, "Extract floating images only")
	pf.BoolVar(&noFloating, "no-floating", false, "Skip floating images")
	pf.StringVar(&requireNetwork, "require-network", "", "Refuse to run unless host:port is reachable over TCP")
	pf.DurationVar(&networkTimeout, "network-timeout", gate.DefaultTimeout, "Timeout for --require-network")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Only print warnings and errors")

	f := rootCmd.Flags()
	f.StringVarP(&outputDir, "output", "o", "images", "Output directory")
	f.StringVar(&configPath, "config", "", "JSON naming configuration file")
	f.StringVar(&namingMode, "naming", "default", "Naming mode: default, combination, columns")
	f.StringVar(&prefix, "prefix", "", "Combination naming: prefix")
	f.BoolVar(&withDate, "date", false, "Combination naming: include the current date")
	f.StringVar(&dateLayout, "date-layout", "20060102", "Combination naming: Go time layout for the date")
	f.BoolVar(&withSequence, "sequence", false, "Combination naming: include the sequence number")
	f.IntVar(&digits, "digits", 3, "Combination naming: sequence number width")
	f.StringVar(&order, "order", string(output.OrderPrefixDateSequence), "Combination naming: part order, e.g. sequence_prefix_date")
	f.StringVar(&nameColumns, "name-columns", "", "Column naming: comma-separated columns whose values form the name")
	f.StringVar(&separator, "separator", "_", "Column naming: separator between values")
	f.StringVar(&manifestPath, "manifest", "", "Write a JSON manifest of the extracted files")
	f.BoolVar(&pretty, "pretty", false, "Pretty-print the JSON manifest")
	f.BoolVar(&overwrite, "overwrite", false, "Overwrite existing files instead of adding a suffix")
	f.IntVar(&parallelism, "parallel", 4, "Concurrent file writes")

	listCmd := &cobra.Command{
		Use:   "list [input.xlsx]",
		Short: "List the images that would be extracted",
		Args:  cobra.ExactArgs(1),
		RunE:  runList,
	}
	listCmd.Flags().BoolVar(&listAsJSON, "json", false, "Print JSON instead of a table")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("xlimage version %s\n", version)
		},
	}

	rootCmd.AddCommand(listCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	naming, err := namingConfig(cmd)
	if err != nil {
		return err
	}

	opts, err := extractOptions()
	if err != nil {
		return err
	}

	res, err := xlimage.Extract(inputPath, opts)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	var rows output.RowLookup
	if naming.Mode == output.NamingColumns {
		rr, err := parser.OpenRowReader(inputPath)
		if err != nil {
			return fmt.Errorf("open workbook for column naming: %w", err)
		}
		defer rr.Close()
		rows = rr
	}

	namer, err := output.NewNamer(naming, rows)
	if err != nil {
		return err
	}
	namer.WithLogger(opts.Logger)

	wr, err := output.Write(context.Background(), res.Images, namer, output.WriteConfig{
		Dir:         outputDir,
		Overwrite:   overwrite,
		Parallelism: parallelism,
	})
	if err != nil {
		return fmt.Errorf("failed to write images: %w", err)
	}

	if manifestPath != "" {
		data, err := output.ToJSON(output.NewManifest(res, wr), pretty)
		if err != nil {
			return fmt.Errorf("serialization failed: %w", err)
		}
		if err := os.WriteFile(manifestPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write manifest: %w", err)
		}
	}

	printSummary(res, wr)
	if len(wr.Errors) > 0 {
		return fmt.Errorf("%d file(s) could not be written", len(wr.Errors))
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	opts, err := extractOptions()
	if err != nil {
		return err
	}

	res, err := xlimage.Extract(args[0], opts)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if listAsJSON {
		data, err := output.ToJSON(output.NewManifest(res, nil), true)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	for _, img := range res.Images {
		id := img.Anchor.ImageID
		if id == "" {
			id = "-"
		}
		fmt.Printf("%4d  %-8s  %-20s  %-6s  %-34s  %s  %dx%d\n",
			img.SequenceIndex, img.Anchor.Kind, img.SheetName(), img.Anchor.Cell.Name(),
			id, img.Anchor.Media.Path, img.Width, img.Height)
	}
	printWarnings(res)
	return nil
}

// extractOptions maps the selection flags to extraction options. The most
// specific selection wins: ids, columns, sheet, floating-only, workbook.
func extractOptions() (xlimage.Options, error) {
	opts := xlimage.DefaultOptions()
	opts.Logger = &cliLogger{quiet: quiet}

	switch {
	case imageIDs != "":
		opts.Mode = xlimage.ModeIDs
		opts.IDs = splitList(imageIDs)
	case columns != "":
		cols, err := parser.ParseColumnSpec(columns)
		if err != nil {
			return opts, xlimage.NewModeParameterError("columns", columns, err)
		}
		opts.Mode = xlimage.ModeColumns
		opts.Sheet = sheetName
		for _, c := range cols {
			opts.Columns = append(opts.Columns, parser.ColumnName(c))
		}
	case sheetName != "":
		opts.Mode = xlimage.ModeSheet
		opts.Sheet = sheetName
	case floatingOnly:
		opts.Mode = xlimage.ModeFloating
	}

	if noFloating {
		include := false
		opts.IncludeFloating = &include
	}

	if requireNetwork != "" {
		probe := gate.TCPProbe{Addr: requireNetwork, Timeout: networkTimeout}
		opts.EnvironmentCheck = probe.Check
	}

	return opts, nil
}

// namingConfig loads --config, then applies explicitly set naming flags.
func namingConfig(cmd *cobra.Command) (output.NamingConfig, error) {
	cfg := output.NamingConfig{Mode: output.NamingDefault}
	if configPath != "" {
		loaded, err := output.LoadNamingConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("naming") || configPath == "" {
		cfg.Mode = output.NamingMode(namingMode)
	}
	if flags.Changed("prefix") {
		cfg.Prefix = prefix
	}
	if flags.Changed("date") {
		cfg.IncludeDate = withDate
	}
	if flags.Changed("date-layout") || cfg.DateLayout == "" {
		cfg.DateLayout = dateLayout
	}
	if flags.Changed("sequence") {
		cfg.IncludeSequence = withSequence
	}
	if flags.Changed("digits") || cfg.SequenceDigits == 0 {
		cfg.SequenceDigits = digits
	}
	if flags.Changed("order") || cfg.Order == "" {
		cfg.Order = output.Order(order)
	}
	if flags.Changed("name-columns") {
		cfg.Columns = splitList(nameColumns)
	}
	if flags.Changed("separator") || (configPath == "" && cfg.Separator == "") {
		cfg.Separator = separator
	}

	return cfg, cfg.Validate()
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func printSummary(res *xlimage.Result, wr *output.WriteResult) {
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	var floating, embedded int
	for _, img := range res.Images {
		if img.ImageID() != "" {
			embedded++
		} else {
			floating++
		}
	}

	if !quiet {
		cyan.Printf("\n%s\n", res.BookName)
		fmt.Printf("  • Embedded images: %d\n", embedded)
		fmt.Printf("  • Floating images: %d\n", floating)
	}
	printWarnings(res)
	for _, err := range wr.Errors {
		color.New(color.FgRed).Printf("✗ %v\n", err)
	}
	green.Printf("\n✨ Wrote %d file(s) to %s\n", len(wr.Files), outputDir)
}

func printWarnings(res *xlimage.Result) {
	if len(res.Warnings) == 0 {
		return
	}
	color.New(color.FgYellow).Printf("\n⚠ %d warning(s)\n", len(res.Warnings))
}

// cliLogger implements xlimage.Logger with colored terminal output.
type cliLogger struct {
	quiet bool
}

func (l *cliLogger) Infof(format string, args ...any) {
	if l.quiet {
		return
	}
	color.New(color.FgYellow).Printf(format+"\n", args...)
}

func (l *cliLogger) Warnf(format string, args ...any) {
	color.New(color.FgYellow).Printf("⚠ "+format+"\n", args...)
}

func (l *cliLogger) Errorf(format string, args ...any) {
	color.New(color.FgRed).Printf("✗ "+format+"\n", args...)
}
