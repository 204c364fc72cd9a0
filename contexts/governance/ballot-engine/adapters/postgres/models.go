package postgresadapter

import (
	"encoding/json"
	"time"

	"quorum/contexts/governance/ballot-engine/domain/entities"
	"quorum/contexts/governance/ballot-engine/ports"
)

type sessionModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	StartsAt  int64     `gorm:"column:starts_at"`
	EndsAt    int64     `gorm:"column:ends_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (sessionModel) TableName() string {
	return "ballot_session"
}

func (m sessionModel) toEntity() entities.SessionWindow {
	return entities.SessionWindow{
		StartsAt:  m.StartsAt,
		EndsAt:    m.EndsAt,
		UpdatedAt: m.UpdatedAt,
	}
}

type resolutionModel struct {
	// Positional ids start at 0, so the integer key must not be treated as
	// auto-increment: gorm would omit the zero value on insert.
	ID            int       `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name          string    `gorm:"column:name"`
	URL           string    `gorm:"column:url"`
	ProposalCount int       `gorm:"column:proposal_count"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (resolutionModel) TableName() string {
	return "ballot_resolutions"
}

func (m resolutionModel) toEntity(tallies []uint64) entities.Resolution {
	return entities.Resolution{
		ID:        m.ID,
		Name:      m.Name,
		URL:       m.URL,
		Tallies:   tallies,
		CreatedAt: m.CreatedAt,
	}
}

type proposalModel struct {
	ResolutionID  int    `gorm:"column:resolution_id;primaryKey"`
	ProposalIndex int    `gorm:"column:proposal_index;primaryKey"`
	Tally         uint64 `gorm:"column:tally"`
}

func (proposalModel) TableName() string {
	return "ballot_proposals"
}

type voterModel struct {
	Address      string    `gorm:"column:address;primaryKey"`
	Weight       uint64    `gorm:"column:weight"`
	Delegate     string    `gorm:"column:delegate"`
	RegisteredAt time.Time `gorm:"column:registered_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (voterModel) TableName() string {
	return "ballot_voters"
}

func (m voterModel) toEntity(voted map[int]bool) (entities.Voter, error) {
	address, err := entities.ParseAddress(m.Address)
	if err != nil {
		return entities.Voter{}, err
	}
	delegate := entities.NullAddress
	if m.Delegate != "" && m.Delegate != entities.NullAddress.String() {
		delegate, err = entities.ParseAddress(m.Delegate)
		if err != nil {
			return entities.Voter{}, err
		}
	}
	return entities.Voter{
		Address:      address,
		Weight:       m.Weight,
		Delegate:     delegate,
		Voted:        voted,
		RegisteredAt: m.RegisteredAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

type voteModel struct {
	VoterAddress  string    `gorm:"column:voter_address;primaryKey"`
	ResolutionID  int       `gorm:"column:resolution_id;primaryKey"`
	ProposalIndex int       `gorm:"column:proposal_index"`
	Weight        uint64    `gorm:"column:weight"`
	CastAt        time.Time `gorm:"column:cast_at"`
}

func (voteModel) TableName() string {
	return "ballot_votes"
}

type auditModel struct {
	ID            string    `gorm:"column:id;primaryKey"`
	EventID       string    `gorm:"column:event_id;uniqueIndex"`
	VoterAddress  string    `gorm:"column:voter_address"`
	ResolutionID  int       `gorm:"column:resolution_id"`
	ProposalIndex int       `gorm:"column:proposal_index"`
	Weight        uint64    `gorm:"column:weight"`
	RecordedAt    time.Time `gorm:"column:recorded_at"`
}

func (auditModel) TableName() string {
	return "ballot_audit"
}

func (m auditModel) toEntity() (entities.VoteAudit, error) {
	voter, err := entities.ParseAddress(m.VoterAddress)
	if err != nil {
		return entities.VoteAudit{}, err
	}
	return entities.VoteAudit{
		AuditID:      m.ID,
		EventID:      m.EventID,
		Voter:        voter,
		ResolutionID: m.ResolutionID,
		ProposalID:   m.ProposalIndex,
		Weight:       m.Weight,
		RecordedAt:   m.RecordedAt,
	}, nil
}

type outboxModel struct {
	// Seq is the relay order: rows in one batch share created_at, so the
	// database-assigned sequence is what preserves insertion order.
	Seq          int64      `gorm:"column:seq;primaryKey;autoIncrement"`
	ID           string     `gorm:"column:id;uniqueIndex"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "ballot_outbox"
}

type dedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (dedupModel) TableName() string {
	return "ballot_event_dedup"
}

func marshalEnvelope(envelope ports.EventEnvelope) ([]byte, error) {
	return json.Marshal(envelope)
}
