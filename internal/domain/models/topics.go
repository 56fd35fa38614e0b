package models

// Stream topic names shared by every service in the pipeline.
const (
	TopicTicks     = "market.ticks"
	TopicProposals = "agent.proposals"
	TopicActions   = "execution.actions"
	TopicAudit     = "audit.events"

	// TopicVotes is reserved: the schema exists and the gateway relays it,
	// but no producer writes to it yet.
	TopicVotes = "governance.votes"
)

// DefaultTopics lists every topic the fan-out gateway relays by default.
func DefaultTopics() []string {
	return []string{TopicTicks, TopicProposals, TopicVotes, TopicActions, TopicAudit}
}
