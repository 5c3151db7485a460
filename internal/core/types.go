package core

import "fibretrace/pkg/domain"

type (
	ItemKind           = domain.ItemKind
	Severity           = domain.Severity
	Base               = domain.Base
	InboundBatch       = domain.InboundBatch
	SortedPack         = domain.SortedPack
	FibrePack          = domain.FibrePack
	Consignment        = domain.Consignment
	AuditLogEntry      = domain.AuditLogEntry
	TraceableItem      = domain.TraceableItem
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	KindInbound     = domain.KindInbound
	KindSorted      = domain.KindSorted
	KindFibre       = domain.KindFibre
	KindConsignment = domain.KindConsignment
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
)
