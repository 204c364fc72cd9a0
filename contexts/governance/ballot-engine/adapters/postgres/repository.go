package postgresadapter

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"quorum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-engine/domain/errors"
	"quorum/contexts/governance/ballot-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"

	sessionRowID = "current"
)

// Repository is the gorm-backed implementation of the ballot ports. It works
// against postgres and the embedded sqlite dialector alike; the schema is
// managed externally.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) GetWindow(ctx context.Context) (entities.SessionWindow, error) {
	var row sessionModel
	err := r.db.WithContext(ctx).Where("id = ?", sessionRowID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.SessionWindow{}, nil
		}
		return entities.SessionWindow{}, r.logError("ballot_repo_get_window_failed", err)
	}
	return row.toEntity(), nil
}

func (r *Repository) PutWindow(ctx context.Context, window entities.SessionWindow) error {
	row := sessionModel{
		ID:        sessionRowID,
		StartsAt:  window.StartsAt,
		EndsAt:    window.EndsAt,
		UpdatedAt: window.UpdatedAt.UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"starts_at":  row.StartsAt,
			"ends_at":    row.EndsAt,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error
	if err != nil {
		return r.logError("ballot_repo_put_window_failed", err,
			"starts_at", window.StartsAt,
			"ends_at", window.EndsAt,
		)
	}
	return nil
}

func (r *Repository) AppendResolutions(ctx context.Context, drafts []entities.Resolution) ([]entities.Resolution, error) {
	stored := make([]entities.Resolution, 0, len(drafts))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&resolutionModel{}).Count(&count).Error; err != nil {
			return err
		}
		for _, draft := range drafts {
			row := resolutionModel{
				ID:            int(count),
				Name:          draft.Name,
				URL:           draft.URL,
				ProposalCount: len(draft.Tallies),
				CreatedAt:     draft.CreatedAt.UTC(),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			for index := range draft.Tallies {
				slot := proposalModel{
					ResolutionID:  row.ID,
					ProposalIndex: index,
				}
				if err := tx.Create(&slot).Error; err != nil {
					return err
				}
			}
			draft.ID = row.ID
			stored = append(stored, draft)
			count++
		}
		return nil
	})
	if err != nil {
		return nil, r.logError("ballot_repo_append_resolutions_failed", err, "batch_size", len(drafts))
	}
	return stored, nil
}

func (r *Repository) ResolutionCount(ctx context.Context) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&resolutionModel{}).Count(&count).Error
	if err != nil {
		return 0, r.logError("ballot_repo_resolution_count_failed", err)
	}
	return int(count), nil
}

func (r *Repository) GetResolution(ctx context.Context, resolutionID int) (entities.Resolution, bool, error) {
	var row resolutionModel
	err := r.db.WithContext(ctx).Where("id = ?", resolutionID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Resolution{}, false, nil
		}
		return entities.Resolution{}, false, r.logError("ballot_repo_get_resolution_failed", err, "resolution_id", resolutionID)
	}

	tallies, err := r.loadTallies(ctx, row.ID, row.ProposalCount)
	if err != nil {
		return entities.Resolution{}, false, err
	}
	return row.toEntity(tallies), true, nil
}

func (r *Repository) ListResolutions(ctx context.Context) ([]entities.Resolution, error) {
	var rows []resolutionModel
	err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, r.logError("ballot_repo_list_resolutions_failed", err)
	}
	items := make([]entities.Resolution, 0, len(rows))
	for _, row := range rows {
		tallies, err := r.loadTallies(ctx, row.ID, row.ProposalCount)
		if err != nil {
			return nil, err
		}
		items = append(items, row.toEntity(tallies))
	}
	return items, nil
}

func (r *Repository) loadTallies(ctx context.Context, resolutionID int, proposalCount int) ([]uint64, error) {
	var slots []proposalModel
	err := r.db.WithContext(ctx).
		Where("resolution_id = ?", resolutionID).
		Order("proposal_index ASC").
		Find(&slots).Error
	if err != nil {
		return nil, r.logError("ballot_repo_load_tallies_failed", err, "resolution_id", resolutionID)
	}
	tallies := make([]uint64, proposalCount)
	for _, slot := range slots {
		if slot.ProposalIndex >= 0 && slot.ProposalIndex < len(tallies) {
			tallies[slot.ProposalIndex] = slot.Tally
		}
	}
	return tallies, nil
}

func (r *Repository) GetVoter(ctx context.Context, address entities.Address) (entities.Voter, bool, error) {
	var row voterModel
	err := r.db.WithContext(ctx).Where("address = ?", address.String()).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Voter{}, false, nil
		}
		return entities.Voter{}, false, r.logError("ballot_repo_get_voter_failed", err, "voter", address.String())
	}

	voted, err := r.loadVotedSet(ctx, address)
	if err != nil {
		return entities.Voter{}, false, err
	}
	voter, err := row.toEntity(voted)
	if err != nil {
		return entities.Voter{}, false, err
	}
	return voter, true, nil
}

func (r *Repository) UpsertVoterWeights(
	ctx context.Context,
	addresses []entities.Address,
	weights []uint64,
	now time.Time,
) ([]entities.Voter, error) {
	if len(addresses) != len(weights) {
		return nil, domainerrors.ErrLengthMismatch
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, address := range addresses {
			row := voterModel{
				Address:      address.String(),
				Weight:       weights[i],
				RegisteredAt: now.UTC(),
				UpdatedAt:    now.UTC(),
			}
			// Weight-only update on conflict: delegate and vote history are
			// intentionally preserved across re-registration.
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "address"}},
				DoUpdates: clause.Assignments(map[string]any{
					"weight":     row.Weight,
					"updated_at": row.UpdatedAt,
				}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, r.logError("ballot_repo_upsert_voters_failed", err, "batch_size", len(addresses))
	}

	voters := make([]entities.Voter, 0, len(addresses))
	for _, address := range addresses {
		voter, found, err := r.GetVoter(ctx, address)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, domainerrors.ErrVoterNotFound
		}
		voters = append(voters, voter)
	}
	return voters, nil
}

func (r *Repository) SetDelegate(ctx context.Context, voter entities.Address, delegate entities.Address, now time.Time) error {
	result := r.db.WithContext(ctx).Model(&voterModel{}).
		Where("address = ?", voter.String()).
		Updates(map[string]any{
			"delegate":   delegate.String(),
			"updated_at": now.UTC(),
		})
	if result.Error != nil {
		return r.logError("ballot_repo_set_delegate_failed", result.Error,
			"voter", voter.String(),
			"delegate", delegate.String(),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotAVoter
	}
	return nil
}

func (r *Repository) HasVoted(ctx context.Context, voter entities.Address, resolutionID int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&voteModel{}).
		Where("voter_address = ?", voter.String()).
		Where("resolution_id = ?", resolutionID).
		Count(&count).Error
	if err != nil {
		return false, r.logError("ballot_repo_has_voted_failed", err,
			"voter", voter.String(),
			"resolution_id", resolutionID,
		)
	}
	return count > 0, nil
}

func (r *Repository) ListVoters(ctx context.Context) ([]entities.Voter, error) {
	var rows []voterModel
	err := r.db.WithContext(ctx).Order("address ASC").Find(&rows).Error
	if err != nil {
		return nil, r.logError("ballot_repo_list_voters_failed", err)
	}
	voters := make([]entities.Voter, 0, len(rows))
	for _, row := range rows {
		address, err := entities.ParseAddress(row.Address)
		if err != nil {
			return nil, err
		}
		voted, err := r.loadVotedSet(ctx, address)
		if err != nil {
			return nil, err
		}
		voter, err := row.toEntity(voted)
		if err != nil {
			return nil, err
		}
		voters = append(voters, voter)
	}
	return voters, nil
}

func (r *Repository) loadVotedSet(ctx context.Context, voter entities.Address) (map[int]bool, error) {
	var rows []voteModel
	err := r.db.WithContext(ctx).
		Where("voter_address = ?", voter.String()).
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("ballot_repo_load_voted_failed", err, "voter", voter.String())
	}
	voted := make(map[int]bool, len(rows))
	for _, row := range rows {
		voted[row.ResolutionID] = true
	}
	return voted, nil
}

// RecordVote commits the voted-set entry and the tally increment in one
// transaction. The vote row's (voter, resolution) primary key turns a
// concurrent duplicate into a unique violation, mapped to AlreadyVoted.
func (r *Repository) RecordVote(ctx context.Context, record entities.VoteRecord) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var voter voterModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("address = ?", record.Voter.String()).
			First(&voter).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrNotAVoter
			}
			return err
		}
		if voter.Weight == 0 {
			return domainerrors.ErrNotAVoter
		}

		var slot proposalModel
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("resolution_id = ?", record.ResolutionID).
			Where("proposal_index = ?", record.ProposalID).
			First(&slot).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				var count int64
				if err := tx.Model(&resolutionModel{}).Where("id = ?", record.ResolutionID).Count(&count).Error; err != nil {
					return err
				}
				if count == 0 {
					return domainerrors.ErrResolutionOutOfRange
				}
				return domainerrors.ErrProposalOutOfRange
			}
			return err
		}
		if slot.Tally > math.MaxUint64-record.Weight {
			return domainerrors.ErrTallyOverflow
		}

		vote := voteModel{
			VoterAddress:  record.Voter.String(),
			ResolutionID:  record.ResolutionID,
			ProposalIndex: record.ProposalID,
			Weight:        record.Weight,
			CastAt:        record.CastAt.UTC(),
		}
		if err := tx.Create(&vote).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrAlreadyVoted
			}
			return err
		}

		return tx.Model(&proposalModel{}).
			Where("resolution_id = ?", record.ResolutionID).
			Where("proposal_index = ?", record.ProposalID).
			Update("tally", slot.Tally+record.Weight).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyVoted) ||
			errors.Is(err, domainerrors.ErrNotAVoter) ||
			errors.Is(err, domainerrors.ErrResolutionOutOfRange) ||
			errors.Is(err, domainerrors.ErrProposalOutOfRange) ||
			errors.Is(err, domainerrors.ErrTallyOverflow) {
			return err
		}
		return r.logError("ballot_repo_record_vote_failed", err,
			"voter", record.Voter.String(),
			"resolution_id", record.ResolutionID,
			"proposal_id", record.ProposalID,
		)
	}
	return nil
}

func (r *Repository) AppendAudit(ctx context.Context, audit entities.VoteAudit) error {
	row := auditModel{
		ID:            audit.AuditID,
		EventID:       audit.EventID,
		VoterAddress:  audit.Voter.String(),
		ResolutionID:  audit.ResolutionID,
		ProposalIndex: audit.ProposalID,
		Weight:        audit.Weight,
		RecordedAt:    audit.RecordedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("ballot_repo_append_audit_failed", err, "event_id", audit.EventID)
	}
	return nil
}

func (r *Repository) ListAuditsByResolution(ctx context.Context, resolutionID int) ([]entities.VoteAudit, error) {
	var rows []auditModel
	err := r.db.WithContext(ctx).
		Where("resolution_id = ?", resolutionID).
		Order("recorded_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("ballot_repo_list_audits_failed", err, "resolution_id", resolutionID)
	}
	items := make([]entities.VoteAudit, 0, len(rows))
	for _, row := range rows {
		audit, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, audit)
	}
	return items, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := marshalEnvelope(envelope)
	if err != nil {
		return err
	}
	outboxID := envelope.EventID
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	row := outboxModel{
		ID:           outboxID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    createdAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			var existing outboxModel
			lookupErr := r.db.WithContext(ctx).Where("id = ?", outboxID).First(&existing).Error
			if lookupErr == nil && bytes.Equal(existing.Payload, payload) {
				return nil
			}
			return domainerrors.ErrConflict
		}
		return r.logError("ballot_repo_append_outbox_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("seq ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("ballot_repo_list_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.ID,
			Seq:          row.Seq,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt,
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	published := publishedAt.UTC()
	result := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("id = ?", outboxID).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": &published,
		})
	if result.Error != nil {
		return r.logError("ballot_repo_mark_outbox_failed", result.Error, "outbox_id", outboxID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := dedupModel{
		EventID:     eventID,
		PayloadHash: payloadHash,
		ExpiresAt:   expiresAt.UTC(),
	}
	err := r.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return false, nil
	}
	if !isUniqueViolation(err) {
		return false, r.logError("ballot_repo_reserve_event_failed", err, "event_id", eventID)
	}

	var existing dedupModel
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&existing).Error; err != nil {
		return false, r.logError("ballot_repo_reserve_event_lookup_failed", err, "event_id", eventID)
	}
	if existing.PayloadHash != payloadHash {
		return false, domainerrors.ErrConflict
	}
	return true, nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "governance/ballot-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("ballot repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// SystemClock satisfies the Clock port with wall time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator satisfies the IDGenerator port.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
