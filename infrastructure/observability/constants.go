package observability

const (
	MetricPrefix = "raffle"
)

// Metric names
const (
	// Lottery metrics
	EntriesAcceptedTotal = MetricPrefix + ".entries.accepted_total"
	EntriesRejectedTotal = MetricPrefix + ".entries.rejected_total"
	CurrentPlayers       = MetricPrefix + ".round.players"
	DrawsRequestedTotal  = MetricPrefix + ".draws.requested_total"
	WinnersSelectedTotal = MetricPrefix + ".draws.winners_selected_total"
	PayoutFailuresTotal  = MetricPrefix + ".draws.payout_failures_total"

	// Upkeep metrics
	UpkeepChecksTotal = MetricPrefix + ".upkeep.checks_total"

	// Oracle metrics
	FulfillmentsReceivedTotal = MetricPrefix + ".oracle.fulfillments_received_total"
)

// Label keys
const (
	LabelReason = "reason"
	LabelReady  = "ready"
	LabelResult = "result"
)

// Fulfillment results
const (
	FulfillmentResultApplied = "applied"
	FulfillmentResultStale   = "stale"
	FulfillmentResultFailed  = "failed"
)
