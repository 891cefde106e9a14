// Package main implements compliance-cli, a terminal front end to the compliance engine.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/incubatehub/compliance-api/internal/app"
	"github.com/incubatehub/compliance-api/internal/models"
	"github.com/incubatehub/compliance-api/internal/service"
	"github.com/incubatehub/compliance-api/pkg/config"
	"github.com/incubatehub/compliance-api/pkg/logger"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "compliance-cli",
	Short:         "Incubation compliance engine CLI",
	Long:          `compliance-cli inspects participant compliance, dispatches reminders and renders exports against the configured document store.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("company", "", "Company code (required by most commands)")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().Duration("timeout", 2*time.Minute, "Overall command timeout")

	overviewCmd.Flags().Bool("refresh", false, "Bypass the overview cache")
	participantCmd.Flags().String("id", "", "Participant ID")

	exportCmd.Flags().String("type", string(models.ReportTypeParticipants), "Dataset: participants or documents")
	exportCmd.Flags().String("format", string(models.ReportFormatCSV), "Format: csv, pdf or xlsx")
	exportCmd.Flags().String("output", "", "Output file (default: compliance_<type>_<company>.<format>)")
	exportCmd.Flags().StringSlice("status", nil, "Only include documents with these effective statuses")

	remindersCmd.AddCommand(remindersListCmd)
	remindersCmd.AddCommand(remindersDispatchCmd)
	cacheCmd.AddCommand(cachePurgeCmd)

	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(participantCmd)
	rootCmd.AddCommand(remindersCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(cacheCmd)
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Print participant summaries and global stats for a company",
	RunE:  runOverview,
}

var participantCmd = &cobra.Command{
	Use:   "participant",
	Short: "Print the merged compliance summary of one participant",
	RunE:  runParticipant,
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Reminder payloads for participants needing action",
}

var remindersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reminder payloads without publishing",
	RunE:  runRemindersList,
}

var remindersDispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Publish reminder payloads to the notifier queue",
	RunE:  runRemindersDispatch,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render a compliance export to a local file",
	RunE:  runExport,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Overview cache maintenance",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop every cached compliance overview",
	RunE:  runCachePurge,
}

type session struct {
	ctx       context.Context
	cancel    context.CancelFunc
	container *app.Container
	logger    *zap.Logger
	company   string
	json      bool
}

func openSession(cmd *cobra.Command, opts app.Options, requireCompany bool) (*session, error) {
	company, _ := cmd.Flags().GetString("company")
	company = strings.TrimSpace(company)
	if requireCompany && company == "" {
		return nil, fmt.Errorf("--company is required")
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Log.Format = "console"
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	container, err := app.Build(ctx, cfg, logr, opts)
	if err != nil {
		cancel()
		return nil, err
	}
	return &session{ctx: ctx, cancel: cancel, container: container, logger: logr, company: company, json: asJSON}, nil
}

func (s *session) close() {
	s.container.Close(context.Background())
	_ = s.logger.Sync()
	s.cancel()
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runOverview(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, app.Options{}, true)
	if err != nil {
		return err
	}
	defer s.close()

	refresh, _ := cmd.Flags().GetBool("refresh")
	overview, cacheHit, err := s.container.Compliance.Overview(s.ctx, s.company, service.OverviewOptions{Refresh: refresh})
	if err != nil {
		return err
	}
	if s.json {
		return printJSON(overview)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARTICIPANT\tNAME\tSCORE\tVALID\tEXPIRING\tEXPIRED\tMISSING\tPENDING\tINVALID\tACTION")
	for _, summary := range overview.Summaries {
		c := summary.Counts
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%t\n",
			summary.ParticipantID, summary.Name, summary.ComplianceScore,
			c.Valid, c.Expiring, c.Expired, c.Missing, c.Pending, c.Invalid, summary.ActionNeeded)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	stats := overview.Stats
	fmt.Printf("\nparticipants=%d documents=%d avg_score=%d action_needed=%d cache_hit=%t\n",
		stats.Participants, stats.TotalDocuments, stats.AvgComplianceScore, stats.ActionNeededCount, cacheHit)
	return nil
}

func runParticipant(cmd *cobra.Command, _ []string) error {
	id, _ := cmd.Flags().GetString("id")
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("--id is required")
	}
	s, err := openSession(cmd, app.Options{}, true)
	if err != nil {
		return err
	}
	defer s.close()

	summary, err := s.container.Compliance.Participant(s.ctx, s.company, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if s.json {
		return printJSON(summary)
	}

	fmt.Printf("%s (%s) score=%d action_needed=%t\n", summary.Name, summary.ParticipantID, summary.ComplianceScore, summary.ActionNeeded)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tDOCUMENT\tEXPIRY\tSTATUS\tVERIFICATION")
	for _, doc := range summary.Documents {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", doc.Type, doc.DocumentName, doc.ExpiryDate.String(), doc.EffectiveStatus, doc.VerificationStatusRaw)
	}
	return w.Flush()
}

func runRemindersList(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, app.Options{}, true)
	if err != nil {
		return err
	}
	defer s.close()

	reminders, err := s.container.Compliance.Reminders(s.ctx, s.company)
	if err != nil {
		return err
	}
	if s.json {
		return printJSON(reminders)
	}
	for _, reminder := range reminders {
		issues := make([]string, 0, len(reminder.Issues))
		for _, issue := range reminder.Issues {
			issues = append(issues, fmt.Sprintf("%s (%s)", issue.Type, issue.Status))
		}
		fmt.Printf("%s <%s>: %s\n", reminder.Name, reminder.Email, strings.Join(issues, ", "))
	}
	return nil
}

func runRemindersDispatch(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, app.Options{Reminders: true}, true)
	if err != nil {
		return err
	}
	defer s.close()

	sent, err := s.container.Reminders.Dispatch(s.ctx, s.company)
	if err != nil {
		return err
	}
	if s.json {
		return printJSON(map[string]interface{}{"companyCode": s.company, "published": sent})
	}
	fmt.Printf("published %d reminders for %s\n", sent, s.company)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	reportType, _ := cmd.Flags().GetString("type")
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	rawStatuses, _ := cmd.Flags().GetStringSlice("status")

	s, err := openSession(cmd, app.Options{}, true)
	if err != nil {
		return err
	}
	defer s.close()

	statuses := make([]models.EffectiveStatus, 0, len(rawStatuses))
	for _, raw := range rawStatuses {
		statuses = append(statuses, models.EffectiveStatus(strings.ToLower(strings.TrimSpace(raw))))
	}
	params := models.ReportJobParams{CompanyCode: s.company, Format: models.ReportFormat(format), Statuses: statuses}

	overview, _, err := s.container.Compliance.Overview(s.ctx, s.company, service.OverviewOptions{Refresh: true})
	if err != nil {
		return err
	}
	exporter := service.NewExportService(s.container.Compliance, nil, nil, service.ExportConfig{}, s.logger, service.ExportRenderers{})
	dataset, title, err := exporter.BuildDataset(models.ReportType(reportType), overview, params)
	if err != nil {
		return err
	}
	content, _, err := exporter.Render(params.Format, dataset, title)
	if err != nil {
		return err
	}

	if output == "" {
		output = fmt.Sprintf("compliance_%s_%s.%s", reportType, s.company, format)
	}
	if err := os.WriteFile(output, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Printf("wrote %d rows to %s\n", len(dataset.Rows), output)
	return nil
}

func runCachePurge(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, app.Options{}, false)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.container.Compliance.PurgeCache(s.ctx); err != nil {
		return err
	}
	fmt.Println("compliance overview cache purged")
	return nil
}
