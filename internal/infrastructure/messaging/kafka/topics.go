package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/pkg/errors"
)

const (
	TopicTransformations = "reactea.transformations"

	EventTypeTransformation = "compound.transformed"
	SchemaVersion           = "v1"
	eventSource             = "reactea"
)

// TransformationEvent is the payload of one accepted mutation.
type TransformationEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	Schema     string    `json:"schema_version"`
	RunID      string    `json:"run_id"`
	Experiment string    `json:"experiment"`
	CompoundID string    `json:"compound_id"`
	RootID     string    `json:"root_id"`
	Generation int       `json:"generation"`
	SMILES     string    `json:"smiles"`
	RuleID     string    `json:"rule_id"`
	History    []Step    `json:"history,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Step mirrors one entry of a solution's transformation history.
type Step struct {
	AncestorSMILES string `json:"ancestor_smiles"`
	RuleID         string `json:"rule_id"`
}

// NewTransformationEvent stamps an event with a fresh ID.
func NewTransformationEvent(runID, experiment, compoundID, rootID string, generation int, smiles, ruleID string, history []Step) *TransformationEvent {
	return &TransformationEvent{
		EventID:    uuid.New().String(),
		EventType:  EventTypeTransformation,
		Schema:     SchemaVersion,
		RunID:      runID,
		Experiment: experiment,
		CompoundID: compoundID,
		RootID:     rootID,
		Generation: generation,
		SMILES:     smiles,
		RuleID:     ruleID,
		History:    history,
		Timestamp:  time.Now().UTC(),
	}
}

// ToMessage serializes the event. Events of one lineage share a key so they
// land on the same partition in order.
func (e *TransformationEvent) ToMessage(topic string) (*Message, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal transformation event")
	}
	return &Message{
		Topic: topic,
		Key:   []byte(e.RootID),
		Value: val,
		Headers: map[string]string{
			"event_type":     e.EventType,
			"source_service": eventSource,
			"schema_version": e.Schema,
			"run_id":         e.RunID,
		},
		Timestamp: e.Timestamp,
	}, nil
}

// DecodeTransformationEvent parses a consumed message.
func DecodeTransformationEvent(msg *Message) (*TransformationEvent, error) {
	if msg == nil || len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var ev TransformationEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal transformation event")
	}
	return &ev, nil
}

// TopicConfig describes a topic to create.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
	CleanupPolicy     string
	Configs           map[string]string
}

// TransformationTopic returns the settings of the transformation stream.
func TransformationTopic(name string, partitions, replication int) TopicConfig {
	if name == "" {
		name = TopicTransformations
	}
	return TopicConfig{
		Name:              name,
		NumPartitions:     partitions,
		ReplicationFactor: replication,
		RetentionMs:       7 * 24 * 3600 * 1000,
	}
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	DeleteTopics(topics ...string) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates and inspects topics.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

// NewTopicManager dials the first broker.
func NewTopicManager(brokers []string, security SecurityConfig, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	tlsCfg, err := security.tlsConfig()
	if err != nil {
		return nil, err
	}
	mech, err := security.saslMechanism()
	if err != nil {
		return nil, err
	}
	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true, TLS: tlsCfg, SASLMechanism: mech}
	conn, err := dialer.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessageQueue, "failed to dial kafka")
	}
	return &TopicManager{conn: conn, logger: logger.Named("kafka-topics")}, nil
}

// CreateTopic creates cfg unless it already exists.
func (m *TopicManager) CreateTopic(ctx context.Context, cfg TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.NumPartitions <= 0 {
		return errors.New(errors.ErrCodeValidation, "NumPartitions must be > 0")
	}
	if cfg.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "ReplicationFactor must be > 0")
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "retention.ms", ConfigValue: fmt.Sprintf("%d", cfg.RetentionMs)})
	}
	if cfg.CleanupPolicy != "" {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "cleanup.policy", ConfigValue: cfg.CleanupPolicy})
	}
	for k, v := range cfg.Configs {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: k, ConfigValue: v})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		if exists, _ := m.TopicExists(ctx, cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeMessageQueue, "failed to create topic "+cfg.Name)
	}
	m.logger.Info("topic created",
		logging.String("topic", cfg.Name),
		logging.Int("partitions", cfg.NumPartitions))
	return nil
}

// TopicExists reports whether name has partitions. Lookup errors read as
// absent.
func (m *TopicManager) TopicExists(ctx context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

// ListTopics returns every topic name once.
func (m *TopicManager) ListTopics(ctx context.Context) ([]string, error) {
	partitions, err := m.conn.ReadPartitions()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessageQueue, "failed to read partitions")
	}
	seen := make(map[string]bool)
	var topics []string
	for _, p := range partitions {
		if !seen[p.Topic] {
			seen[p.Topic] = true
			topics = append(topics, p.Topic)
		}
	}
	return topics, nil
}

// DeleteTopic removes name.
func (m *TopicManager) DeleteTopic(ctx context.Context, name string) error {
	if err := m.conn.DeleteTopics(name); err != nil {
		return errors.Wrap(err, errors.ErrCodeMessageQueue, "failed to delete topic "+name)
	}
	m.logger.Warn("topic deleted", logging.String("topic", name))
	return nil
}

// EnsureTopics creates every missing topic.
func (m *TopicManager) EnsureTopics(ctx context.Context, topics ...TopicConfig) error {
	for _, topic := range topics {
		if err := m.CreateTopic(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}
