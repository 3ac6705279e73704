package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/mailvec"
	"github.com/poiesic/mailvec/core"
	"github.com/poiesic/mailvec/ingestion"
)

var drafts = []*core.EmailDraft{
	{
		Subject:    "Q3 roadmap review",
		Sender:     "alice@example.com",
		Recipients: []string{"bob@example.com", "carol@example.com"},
		Body:       "The roadmap review is scheduled for Thursday at 10am. Please add your items to the shared doc before Wednesday evening so we can prioritize together.",
	},
	{
		Subject:    "Staging database outage",
		Sender:     "bob@example.com",
		Recipients: []string{"alice@example.com"},
		Cc:         []string{"dan@example.com"},
		Body:       "Staging went down around 2am because the disk filled up with write-ahead logs. I rotated the logs and added an alert at 80% usage. Nothing was lost.",
	},
	{
		Subject:    "Welcome aboard",
		Sender:     "carol@example.com",
		Recipients: []string{"erin@example.com"},
		Body:       "Welcome to the team! Your laptop should arrive Monday. I've scheduled onboarding sessions for your first week and paired you with Bob for the first sprint.",
	},
	{
		Subject:    "Invoice 2041 past due",
		Sender:     "dan@example.com",
		Recipients: []string{"alice@example.com"},
		Body:       "Invoice 2041 from Fastly is thirty days past due. Can you confirm the purchase order number so accounting can release payment this week?",
	},
	{
		Subject:    "Design review notes",
		Sender:     "erin@example.com",
		Recipients: []string{"carol@example.com", "frank@example.com"},
		Body:       "Notes from today's design review: we agreed to split the ingestion service from the query path, keep the wire format versioned, and revisit the retention policy next quarter.",
	},
	{
		Subject:    "Travel approval for KubeCon",
		Sender:     "frank@example.com",
		Recipients: []string{"alice@example.com"},
		Body:       "Requesting approval to attend KubeCon in November. Estimated cost is $2,400 including flights and hotel. I'll write up a summary of relevant talks for the team.",
	},
	{
		Subject:    "Release 1.8 go/no-go",
		Sender:     "alice@example.com",
		Recipients: []string{"bob@example.com", "erin@example.com"},
		Body:       "We're at go/no-go for release 1.8. Two blockers remain: the migration dry run and the rollback playbook. If both close by Friday noon, we ship Monday.",
	},
	{
		Subject:    "Customer escalation from Meridian",
		Sender:     "bob@example.com",
		Recipients: []string{"carol@example.com"},
		Cc:         []string{"alice@example.com"},
		Body:       "Meridian reported intermittent timeouts on their nightly export. I can reproduce it when their dataset exceeds two million rows. Proposing we raise the batch timeout and add a resume token.",
	},
	{
		Subject:    "Office move logistics",
		Sender:     "carol@example.com",
		Recipients: []string{"dan@example.com"},
		Body:       "The office move is confirmed for the last weekend of the month. Pack your desk by Friday; the movers handle monitors and chairs. New badges available at reception.",
	},
	{
		Subject:    "Hiring loop feedback",
		Sender:     "dan@example.com",
		Recipients: []string{"erin@example.com"},
		Body:       "Please submit your interview feedback for yesterday's candidate by end of day. The debrief is tomorrow at 9am and we need written feedback beforehand.",
	},
	{
		Subject:    "Postmortem: search latency spike",
		Sender:     "erin@example.com",
		Recipients: []string{"bob@example.com"},
		Body:       "Draft postmortem attached. Root cause was a cold cache after the deploy combined with an unbounded fan-out in the query planner. Action items are capped fan-out and a cache warmer.",
	},
	{
		Subject:    "Vendor contract renewal",
		Sender:     "frank@example.com",
		Recipients: []string{"dan@example.com"},
		Body:       "Our observability vendor contract renews in six weeks. Usage grew 40% year over year, so I'd like to renegotiate the committed tier before auto-renewal kicks in.",
	},
	{
		Subject:    "Intern project proposal",
		Sender:     "alice@example.com",
		Recipients: []string{"carol@example.com"},
		Body:       "Proposal for the summer intern: build a replay tool for production traffic against staging. Well scoped, useful output, and touches most of our stack without being on the critical path.",
	},
	{
		Subject:    "API deprecation timeline",
		Sender:     "bob@example.com",
		Recipients: []string{"frank@example.com"},
		Body:       "The v1 export API sunsets at the end of the quarter. Three customers still call it weekly. I'll email each of them a migration guide and we'll add deprecation headers next release.",
	},
	{
		Subject:    "Security audit findings",
		Sender:     "carol@example.com",
		Recipients: []string{"alice@example.com", "bob@example.com"},
		Body:       "The external audit found two medium issues: session tokens outlive password changes, and the admin panel lacks rate limiting. Fixes are scheduled for the next sprint.",
	},
	{
		Subject:    "Team lunch Friday",
		Sender:     "dan@example.com",
		Recipients: []string{"alice@example.com", "bob@example.com", "carol@example.com", "erin@example.com", "frank@example.com"},
		Body:       "Team lunch this Friday at the Thai place on 5th. I booked a table for six at 12:30. Let me know about dietary restrictions by Thursday.",
	},
	{
		Subject:    "On-call handoff notes",
		Sender:     "erin@example.com",
		Recipients: []string{"frank@example.com"},
		Body:       "Handing off on-call. Quiet week except for one paging storm Tuesday caused by a flapping health check. I silenced it and filed a ticket to fix the check's timeout.",
	},
	{
		Subject:    "Budget planning kickoff",
		Sender:     "frank@example.com",
		Recipients: []string{"alice@example.com"},
		Cc:         []string{"dan@example.com"},
		Body:       "Kicking off budget planning for next year. Please send headcount asks and infrastructure growth estimates by the 15th. Template is in the finance folder.",
	},
	{
		Subject:    "Flaky test quarantine",
		Sender:     "alice@example.com",
		Recipients: []string{"erin@example.com"},
		Body:       "The integration suite failed four of the last ten runs on the same watcher test. I've quarantined it and opened an issue; main is green again. Let's fix it properly next week.",
	},
	{
		Subject:    "Data retention policy update",
		Sender:     "bob@example.com",
		Recipients: []string{"dan@example.com"},
		Body:       "Legal approved the new retention policy: raw events kept ninety days, aggregates for two years. I'll implement the pruning job and announce the change in the next customer newsletter.",
	},
	{
		Subject:    "Conference talk submission",
		Sender:     "carol@example.com",
		Recipients: []string{"frank@example.com"},
		Body:       "I submitted our talk on incremental reindexing to the storage track. Notification goes out in three weeks. If accepted, I'll need two rehearsal slots with the team.",
	},
	{
		Subject:    "Laptop refresh cycle",
		Sender:     "dan@example.com",
		Recipients: []string{"carol@example.com"},
		Body:       "Machines older than three years are eligible for refresh this quarter. Check the inventory sheet and pick a configuration by Friday if you want in on this order.",
	},
	{
		Subject:    "Incident 4312 follow-up",
		Sender:     "erin@example.com",
		Recipients: []string{"alice@example.com"},
		Body:       "Following up on incident 4312: the config rollout now canaries on two hosts for ten minutes before fleet-wide deploy. That would have caught last month's bad push.",
	},
	{
		Subject:    "Quarterly all-hands agenda",
		Sender:     "frank@example.com",
		Recipients: []string{"alice@example.com", "bob@example.com"},
		Body:       "Draft agenda for the all-hands: quarterly numbers, the reliability initiative, new hire introductions, and a demo of the new search pipeline. Send edits by Monday.",
	},
}

var seedFileName = flag.String("src", "", "file of seed email bodies, one per line")

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}, nil
}

// draftsFromLines wraps each non-blank line in an email draft, cycling
// through a fixed set of participants so searches have identities to
// scope by.
func draftsFromLines(lines iter.Seq[string]) iter.Seq[*core.EmailDraft] {
	senders := []string{"alice@example.com", "bob@example.com", "carol@example.com"}
	recipients := []string{"dan@example.com", "erin@example.com", "frank@example.com"}

	return func(yield func(*core.EmailDraft) bool) {
		i := 0
		for line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			draft := &core.EmailDraft{
				Subject:    fmt.Sprintf("Seed message %d", i+1),
				Sender:     senders[i%len(senders)],
				Recipients: []string{recipients[i%len(recipients)]},
				Body:       line,
			}
			if !yield(draft) {
				return
			}
			i++
		}
	}
}

// draftsFromSlice returns an iterator over a slice of drafts.
func draftsFromSlice(drafts []*core.EmailDraft) iter.Seq[*core.EmailDraft] {
	return func(yield func(*core.EmailDraft) bool) {
		for _, draft := range drafts {
			if !yield(draft) {
				return
			}
		}
	}
}

// ingestBatched reads from a source iterator and ingests drafts in batches.
func ingestBatched(ctx context.Context, orchestrator *ingestion.Orchestrator, source iter.Seq[*core.EmailDraft], batchSize int) error {
	batch := make([]*core.EmailDraft, 0, batchSize)

	for draft := range source {
		batch = append(batch, draft)
		if len(batch) == batchSize {
			if _, err := orchestrator.IngestMany(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}

	// Process any remaining drafts
	if len(batch) > 0 {
		if _, err := orchestrator.IngestMany(ctx, batch); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	db, err := mailvec.NewDatabase("./mail_db")
	if err != nil {
		panic(err)
	}
	defer db.Close()

	orchestrator, err := db.NewIngestionOrchestrator()
	if err != nil {
		panic(err)
	}
	defer orchestrator.Release()

	ctx := context.Background()

	// Determine source of seed data
	var source iter.Seq[*core.EmailDraft]
	if seedFileName != nil && *seedFileName != "" {
		lines, err := linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
		source = draftsFromLines(lines)
	} else {
		source = draftsFromSlice(drafts)
	}

	// Ingest in batches of 5
	if err := ingestBatched(ctx, orchestrator, source, 5); err != nil {
		panic(err)
	}
}
