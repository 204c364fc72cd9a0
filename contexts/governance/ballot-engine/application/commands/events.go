package commands

import (
	"encoding/json"
	"time"

	"quorum/contexts/governance/ballot-engine/ports"
)

const (
	EventWindowSet       = "ballot.window_set"
	EventResolutionAdded = "ballot.resolution_added"
	EventVoterRegistered = "ballot.voter_registered"
	EventVoteCast        = "ballot.vote_cast"
)

func newBallotEnvelope(
	eventID string,
	eventType string,
	partitionKeyPath string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "ballot-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: partitionKeyPath,
		PartitionKey:     partitionKey,
		Data:             payload,
	}, nil
}
