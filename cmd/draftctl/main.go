// Command draftctl inspects and prunes the stored draft collections.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/draftdesk/internal/config"
	"github.com/debemdeboas/draftdesk/internal/drafts"
	"github.com/debemdeboas/draftdesk/internal/logger"
	"github.com/debemdeboas/draftdesk/internal/model"
	"github.com/debemdeboas/draftdesk/internal/storage"
)

const usage = `Usage: draftctl [-config path] <command> <kind> [arg]

Commands:
  list <kind>            list the drafts of blog or project
  show <kind> <id>       print one draft as JSON
  rm <kind> <id>         delete one draft
  rm-slug <kind> <slug>  delete every draft carrying slug
`

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	fileStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Padding(0, 1)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	timeout := flag.Duration("timeout", 10*time.Second, "Storage timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(2)
	}

	kind, ok := model.ParseKind(flag.Arg(1))
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown kind %q\n", flag.Arg(1))
		os.Exit(2)
	}

	config.SetLogger(zerolog.Nop())
	if err := config.LoadConfig(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(config.AppConfig.Logging.Level)
	storage.SetLogger(logger.Component(log, "storage"))
	drafts.SetLogger(logger.Component(log, "drafts"))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	durable, err := storage.Open(ctx, config.AppConfig.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not open draft storage")
	}
	defer durable.Close()

	// The unload slot belongs to the service. A private one keeps it untouched.
	st := drafts.NewStore(kind, durable, storage.NewMemorySlot(),
		drafts.WithMaxDrafts(config.AppConfig.Drafts.MaxDrafts),
		drafts.WithExcerptLength(config.AppConfig.Drafts.ExcerptLength),
		drafts.WithPersistTimeout(*timeout),
	)
	st.Load(ctx)
	defer st.Close()

	if err := run(os.Stdout, st, flag.Arg(0), flag.Arg(2)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		st.Close()
		os.Exit(1)
	}
}

func run(w io.Writer, st *drafts.Store, cmd, arg string) error {
	switch cmd {
	case "list":
		fmt.Fprintln(w, renderSummaries(st.Summaries()))
		return nil

	case "show":
		d, ok := st.Get(model.DraftID(arg))
		if !ok {
			return fmt.Errorf("draft %q not found", arg)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)

	case "rm":
		if !st.Delete(model.DraftID(arg)) {
			return fmt.Errorf("draft %q not found", arg)
		}
		fmt.Fprintln(w, okStyle.Render("Deleted "+arg))
		return nil

	case "rm-slug":
		n := st.DeleteBySlug(arg)
		fmt.Fprintln(w, okStyle.Render("Deleted "+strconv.Itoa(n)+" draft(s)"))
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func renderSummaries(list []model.DraftSummary) string {
	if len(list) == 0 {
		return "No drafts."
	}

	rows := make([][]string, 0, len(list))
	for _, s := range list {
		files := ""
		if s.HasFiles {
			files = "yes"
		}
		rows = append(rows, []string{
			string(s.ID),
			s.Title,
			s.Slug,
			s.UpdatedAt.Local().Format(time.DateTime),
			files,
			s.Excerpt,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("ID", "TITLE", "SLUG", "UPDATED", "FILES", "EXCERPT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 4:
				return fileStyle
			}
			return cellStyle
		})
	return t.String()
}
