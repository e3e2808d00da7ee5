package main

import (
	"bufio"
	"context"
	"flag"
	"iter"
	"log/slog"
	"os"

	"github.com/poiesic/notewell"
	"github.com/poiesic/notewell/ingestion"
)

var notes = []string{
	"Met with Sarah Chen to walk through the Apollo migration plan.",
	"Sarah flagged that the Postgres replica lags during the nightly batch.",
	"Kicked off Project Apollo phase two with the platform team.",
	"Marcus wants the Kubernetes upgrade done before the Apollo cutover.",
	"Paired with Priya on the Redis cache invalidation bug.",
	"The Terraform state for staging drifted again, filed a ticket.",
	"Apollo retro: the feature flags saved us during the rollback.",
	"Discussed event sourcing tradeoffs with Marcus over lunch.",
	"Priya demoed the new GraphQL gateway to the search team.",
	"Onboarded Tom Walker to the observability squad.",
	"Tom asked good questions about our Kafka partitioning scheme.",
	"Spike: evaluated Badger versus SQLite for the edge cache.",
	"Sarah Chen approved the Apollo database sharding proposal.",
	"The Grafana dashboards for Apollo are finally green.",
	"Debugged a gnarly race condition in the ingestion worker pool.",
	"Standup: Marcus is blocked on the Vault token rotation.",
	"Wrote up the incident review for Tuesday's Kafka outage.",
	"Priya and Tom are pairing on the rate limiter rewrite.",
	"Apollo load test hit 40k requests per second before the connection pool saturated.",
	"Talked to the security team about mTLS between the Apollo services.",
	"Sketched the entity resolution design on the whiteboard with Sarah.",
	"The embeddings service needs a bigger GPU quota, pinged infra.",
	"Marcus merged the gRPC retry middleware after two rounds of review.",
	"Quarterly planning: Apollo ships in March, search revamp in Q2.",
	"Tom found a memory leak in the Prometheus exporter.",
	"Reviewed Priya's pull request for the OpenTelemetry tracing hooks.",
	"The nightly reindex job timed out, bumped the batch size down.",
	"Sarah suggested we canary the Apollo API behind a 5% traffic split.",
	"Lunch and learn: Marcus presented on consistent hashing.",
	"Closed out the Redis cluster failover runbook with Priya.",
	"The vendor call about the vector database went nowhere.",
	"Tom is rewriting the alerting rules after the pager storm.",
	"Apollo cutover rehearsal went clean, forty minutes end to end.",
	"Documented the Kafka consumer group rebalancing gotchas.",
	"Sarah Chen is out next week, Marcus covers the Apollo standup.",
	"Prototyped hybrid search blending keyword rank with cosine similarity.",
	"The staging Kubernetes cluster is on 1.29 now, prod next sprint.",
	"Priya caught a nil pointer in the merge path before release.",
	"Retro action item: add backpressure to the ingestion pipeline.",
	"Handed the Terraform modules repo over to the platform team.",
}

var seedFileName = flag.String("src", "", "file of seed data")

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

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

// ingestBatched reads from a source iterator and ingests notes in batches.
func ingestBatched(ctx context.Context, pipeline *ingestion.Pipeline, source iter.Seq[string], batchSize int) error {
	batch := make([]*ingestion.IngestRequest, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		outcomes, err := pipeline.IngestBulk(ctx, batch)
		if err != nil {
			return err
		}
		for i, outcome := range outcomes {
			if outcome.Err != nil {
				slog.Warn("note not ingested", "text", batch[i].Text, "err", outcome.Err)
				continue
			}
			slog.Info("ingested", "note", outcome.Result.NoteId,
				"entities", len(outcome.Result.LinkedEntities),
				"warnings", len(outcome.Result.Warnings))
		}
		batch = batch[:0]
		return nil
	}

	for line := range source {
		batch = append(batch, &ingestion.IngestRequest{Text: line, SessionId: "seed"})
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	return flush()
}

func main() {
	db, err := notewell.NewDatabase("./notes_db")
	if err != nil {
		panic(err)
	}
	defer db.Close()

	ingester, err := db.NewIngestionPipeline()
	if err != nil {
		panic(err)
	}
	defer ingester.Release()

	ctx := context.Background()

	// Determine source of seed data
	var source iter.Seq[string]
	if seedFileName != nil && *seedFileName != "" {
		source, err = linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = linesFromSlice(notes)
	}

	// Ingest in batches of 5
	if err := ingestBatched(ctx, ingester, source, 5); err != nil {
		panic(err)
	}
}
