package authorization

import (
	"strings"

	orgdomain "github.com/smallbiznis/tradieapp/internal/organization/domain"
)

const (
	ObjectOrganization = "organization"
	ObjectMember       = "member"
	ObjectAudit        = "audit"
	ObjectClient       = "client"
	ObjectJob          = "job"
	ObjectQuote        = "quote"
	ObjectInvoice      = "invoice"
	ObjectPayment      = "payment"
	ObjectExpense      = "expense"
	ObjectTimesheet    = "timesheet"
)

const (
	ActionOrgView      = "org.view"
	ActionMemberManage = "member.manage"
	ActionAuditView    = "audit.view"

	ActionClientView   = "client.view"
	ActionClientCreate = "client.create"
	ActionClientUpdate = "client.update"

	ActionJobView    = "job.view"
	ActionJobCreate  = "job.create"
	ActionJobEditAll = "job.edit_all"

	ActionQuoteView    = "quote.view"
	ActionQuoteCreate  = "quote.create"
	ActionQuoteUpdate  = "quote.update"
	ActionQuoteSend    = "quote.send"
	ActionQuoteAccept  = "quote.accept"
	ActionQuoteReject  = "quote.reject"
	ActionQuoteReopen  = "quote.reopen"
	ActionQuoteConvert = "quote.convert"

	ActionInvoiceView   = "invoice.view"
	ActionInvoiceCreate = "invoice.create"
	ActionInvoiceUpdate = "invoice.update"
	ActionInvoiceSend   = "invoice.send"

	ActionPaymentView   = "payment.view"
	ActionPaymentRecord = "payment.record"
	ActionPaymentDelete = "payment.delete"

	ActionExpenseApprove   = "expense.approve"
	ActionTimesheetApprove = "timesheet.approve"
)

// rule describes what a non-admin member needs for an action. An empty
// capability with adminOnly unset means membership alone is enough.
type rule struct {
	capability orgdomain.Capability
	adminOnly  bool
}

var actionRules = map[string]rule{
	ActionOrgView:      {},
	ActionMemberManage: {adminOnly: true},
	ActionAuditView:    {adminOnly: true},

	ActionClientView:   {},
	ActionClientCreate: {capability: orgdomain.CapCreateJobs},
	ActionClientUpdate: {capability: orgdomain.CapCreateJobs},

	ActionJobView:    {},
	ActionJobCreate:  {capability: orgdomain.CapCreateJobs},
	ActionJobEditAll: {capability: orgdomain.CapEditAllJobs},

	ActionQuoteView:    {capability: orgdomain.CapViewFinancials},
	ActionQuoteCreate:  {capability: orgdomain.CapCreateInvoices},
	ActionQuoteUpdate:  {capability: orgdomain.CapCreateInvoices},
	ActionQuoteSend:    {capability: orgdomain.CapCreateInvoices},
	ActionQuoteAccept:  {capability: orgdomain.CapCreateInvoices},
	ActionQuoteReject:  {capability: orgdomain.CapCreateInvoices},
	ActionQuoteReopen:  {capability: orgdomain.CapCreateInvoices},
	ActionQuoteConvert: {capability: orgdomain.CapCreateInvoices},

	ActionInvoiceView:   {capability: orgdomain.CapViewFinancials},
	ActionInvoiceCreate: {capability: orgdomain.CapCreateInvoices},
	ActionInvoiceUpdate: {capability: orgdomain.CapCreateInvoices},
	ActionInvoiceSend:   {capability: orgdomain.CapCreateInvoices},

	ActionPaymentView:   {capability: orgdomain.CapViewFinancials},
	ActionPaymentRecord: {capability: orgdomain.CapCreateInvoices},
	ActionPaymentDelete: {capability: orgdomain.CapCreateInvoices},

	ActionExpenseApprove:   {capability: orgdomain.CapApproveExpenses},
	ActionTimesheetApprove: {capability: orgdomain.CapApproveTimesheets},
}

func objectOf(action string) string {
	prefix, _, _ := strings.Cut(action, ".")
	switch prefix {
	case "org":
		return ObjectOrganization
	default:
		return prefix
	}
}
