package normalizer

import (
	"log/slog"
	"sort"

	"github.com/1tanmay/repo-analyse/internal/collector"
	"github.com/1tanmay/repo-analyse/internal/domain"
)

// Data is the normalized output of one collection: validated, deduplicated
// records in canonical order, plus the count of payloads that were dropped.
type Data struct {
	Repository   domain.RepositoryInfo
	Commits      []*domain.CommitRecord
	Contributors []*domain.ContributorRecord
	Skipped      int
}

// Normalizer converts raw API payloads into the typed analysis model.
type Normalizer struct {
	logger *slog.Logger
}

// New creates a new normalizer
func New(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize validates, deduplicates and orders the collected payloads.
// Records missing required fields are dropped with a warning instead of
// failing the run; duplicated shas keep their first occurrence.
func (n *Normalizer) Normalize(raw *collector.RawData) *Data {
	data := &Data{}
	if raw.Repository != nil {
		data.Repository = repositoryInfo(raw.Repository)
	}

	seen := make(map[string]struct{})
	for _, rc := range raw.Commits() {
		record, ok := n.commitRecord(rc, raw.Stats)
		if !ok {
			data.Skipped++
			continue
		}
		if _, dup := seen[record.SHA]; dup {
			n.logger.Debug("duplicate commit dropped", "sha", record.SHA)
			continue
		}
		seen[record.SHA] = struct{}{}
		data.Commits = append(data.Commits, record)
	}

	// Canonical order: timestamp ascending; ties keep first-seen order.
	sort.SliceStable(data.Commits, func(i, j int) bool {
		return data.Commits[i].Timestamp.Before(data.Commits[j].Timestamp)
	})

	seenLogins := make(map[string]struct{})
	for _, rc := range raw.Contributors() {
		if rc.Login == "" {
			n.logger.Warn("contributor entry without login dropped")
			data.Skipped++
			continue
		}
		if _, dup := seenLogins[rc.Login]; dup {
			continue
		}
		seenLogins[rc.Login] = struct{}{}
		data.Contributors = append(data.Contributors, &domain.ContributorRecord{
			Login:     rc.Login,
			AvatarURL: rc.AvatarURL,
		})
	}

	if data.Skipped > 0 {
		n.logger.Warn("records dropped during normalization", "skipped", data.Skipped)
	}
	return data
}

func (n *Normalizer) commitRecord(rc *collector.RawCommit, stats map[string]collector.CommitStats) (*domain.CommitRecord, bool) {
	if rc.SHA == "" {
		n.logger.Warn("commit without sha dropped")
		return nil, false
	}
	if rc.Timestamp.IsZero() {
		n.logger.Warn("commit without authored date dropped", "sha", rc.SHA)
		return nil, false
	}
	author := rc.Login
	if author == "" {
		author = rc.AuthorName
	}
	if author == "" {
		n.logger.Warn("commit without author identity dropped", "sha", rc.SHA)
		return nil, false
	}

	record := &domain.CommitRecord{
		SHA:        rc.SHA,
		Author:     author,
		AuthorName: rc.AuthorName,
		Message:    rc.Message,
		// Authored dates arrive with arbitrary UTC offsets; canonicalize so
		// downstream bucketing works on a single timeline.
		Timestamp: rc.Timestamp.UTC(),
		Parents:   rc.Parents,
	}
	if cs, ok := stats[rc.SHA]; ok {
		record.Additions = cs.Additions
		record.Deletions = cs.Deletions
	}
	return record, true
}

func repositoryInfo(raw *collector.RawRepository) domain.RepositoryInfo {
	return domain.RepositoryInfo{
		FullName:      raw.FullName,
		Description:   raw.Description,
		DefaultBranch: raw.DefaultBranch,
		Private:       raw.Private,
		Stars:         raw.Stars,
		Forks:         raw.Forks,
		Language:      raw.Language,
		CreatedAt:     raw.CreatedAt,
	}
}
