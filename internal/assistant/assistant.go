// Package assistant answers navigation questions with canned, role-aware
// replies. It is a pure function of (input, role, page) over an ordered rule
// table: the first rule whose keywords match wins, and the last rule is the
// fallback.
//
// Single-word keywords match whole words of the case-folded input, so "hi"
// no longer fires inside "this". Multi-word keywords ("how much", "sign in")
// match as substrings.
package assistant

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/search"
)

// Intent names the rule that produced a reply.
type Intent string

const (
	IntentGreeting Intent = "greeting"
	IntentArabic   Intent = "arabic"
	IntentServices Intent = "services"
	IntentBooking  Intent = "booking"
	IntentOrders   Intent = "orders"
	IntentChat     Intent = "chat"
	IntentAccount  Intent = "account"
	IntentAbout    Intent = "about"
	IntentContact  Intent = "contact"
	IntentFallback Intent = "fallback"
)

// Request is one question. An empty Role means an anonymous visitor.
type Request struct {
	Input string
	Role  domain.Role
	Page  string
}

// Reply is the chosen answer.
type Reply struct {
	Intent Intent `json:"intent"`
	Text   string `json:"text"`
}

// CatalogEntry is the slice of a catalog service the assistant quotes.
type CatalogEntry struct {
	Name     string
	Category string
	Price    decimal.Decimal
}

// catalogPreview is how many catalog entries the services answer lists.
const catalogPreview = 5

type rule struct {
	intent   Intent
	keywords []string
	answer   func(a *Assistant, req Request) string
}

// Assistant holds the rule table and a catalog snapshot. It is immutable
// after New and safe for concurrent use.
type Assistant struct {
	rules   []rule
	catalog []CatalogEntry
}

// New builds an Assistant quoting the first entries of services.
func New(services []domain.Service) *Assistant {
	n := min(len(services), catalogPreview)
	cat := make([]CatalogEntry, 0, n)
	for _, s := range services[:n] {
		cat = append(cat, CatalogEntry{Name: s.Name, Category: s.Category, Price: s.Price})
	}
	return &Assistant{rules: defaultRules(), catalog: cat}
}

// Respond returns the reply of the first matching rule.
func (a *Assistant) Respond(req Request) Reply {
	folded := search.Fold(strings.TrimSpace(req.Input))
	words := make(map[string]struct{})
	for _, w := range search.Terms(folded) {
		words[w] = struct{}{}
	}
	for _, r := range a.rules {
		if r.intent == IntentFallback || matches(r.keywords, folded, words) {
			return Reply{Intent: r.intent, Text: r.answer(a, req)}
		}
	}
	// unreachable: the table ends with the fallback
	return Reply{Intent: IntentFallback, Text: fallbackText}
}

// Intents lists the rule table in evaluation order.
func (a *Assistant) Intents() []Intent {
	out := make([]Intent, len(a.rules))
	for i, r := range a.rules {
		out[i] = r.intent
	}
	return out
}

func matches(keywords []string, folded string, words map[string]struct{}) bool {
	for _, k := range keywords {
		if strings.ContainsRune(k, ' ') {
			if strings.Contains(folded, k) {
				return true
			}
			continue
		}
		if _, ok := words[k]; ok {
			return true
		}
	}
	return false
}

func byRole(client, technician, anonymous string) func(*Assistant, Request) string {
	return func(_ *Assistant, req Request) string {
		switch req.Role {
		case domain.RoleClient:
			return client
		case domain.RoleTechnician:
			return technician
		case domain.RoleAdmin:
			return "As an admin, use All Orders and Analytics to follow bookings."
		}
		return anonymous
	}
}

func fixed(s string) func(*Assistant, Request) string {
	return func(*Assistant, Request) string { return s }
}

const (
	greetingText = "Hello! 👋 I'm the Service Connect assistant. I can help you with:\n" +
		"- browsing services and prices\n- booking a service\n- checking an order\n- your account\n" +
		"Type 'ar' for Arabic."
	arabicText = "مرحباً! 👋 أنا مساعد خدمة الربط. يمكنني مساعدتك في:\n" +
		"- استعراض الخدمات والأسعار\n- حجز خدمة\n- التحقق من حالة الطلب\n- مساعدة الحساب\n" +
		"Type 'en' for English."
	accountText = "👤 Account options:\n- Client: book services\n- Technician: provide services\n" +
		"Register or log in from the home page."
	aboutText   = "🏢 Service Connect links local professionals with clients: home, tech, auto and maintenance services."
	contactText = "📞 Contact us:\n- Email: support@serviceconnect.com\n- Phone: +1-234-567-8900\n" +
		"- Hours: 9 AM to 6 PM (Eastern Time)\nYou can also use the Contact Us form."
	fallbackText = "❓ I can help with:\n- services and prices\n- how to book\n- account help\n- order status\nAsk me anything!"
)

func servicesAnswer(a *Assistant, _ Request) string {
	var b strings.Builder
	b.WriteString("📋 Available services:\n")
	for _, s := range a.catalog {
		fmt.Fprintf(&b, "📍 %s - $%s (%s)\n", s.Name, s.Price.StringFixed(2), s.Category)
	}
	b.WriteString("\n💡 Log in as a client to book any service.")
	b.WriteString("\nSee the Services page for the full list.")
	return b.String()
}

func fallbackAnswer(_ *Assistant, req Request) string {
	if p := strings.TrimSpace(req.Page); p != "" {
		return fallbackText + "\n(You are on the " + p + " page.)"
	}
	return fallbackText
}

func defaultRules() []rule {
	return []rule{
		{IntentGreeting, []string{"hello", "hi", "hey", "start", "hola", "marhaba"}, fixed(greetingText)},
		{IntentArabic, []string{"عربي", "arabic", "ar", "arab"}, fixed(arabicText)},
		{IntentServices, []string{"service", "services", "price", "prices", "cost", "how much", "list", "offer", "cleaning", "plumbing", "tech", "خدمة", "سعر", "كم"}, servicesAnswer},
		{IntentBooking, []string{"book", "order", "reserve", "buy", "schedule", "how", "حجز", "اطلب"}, byRole(
			"📝 To book a service:\n1. Open the Services page\n2. Choose a service\n3. Fill in the booking form\n4. Confirm!",
			"⚠️ Technicians provide services rather than book them. Check the Pending Orders page.",
			"🔐 Please log in or register as a client to book services.",
		)},
		{IntentOrders, []string{"pending", "job", "jobs", "work", "task", "tasks", "orders", "طلب", "عمل"}, byRole(
			"📦 Your bookings are on the My Orders page.",
			"🛠️ Every open job is on the Pending Orders page. Press Complete when you finish.",
			"🔐 Please log in to see orders.",
		)},
		{IntentChat, []string{"chat", "message", "messages", "talk", "technician", "fani", "شات", "رسالة"}, byRole(
			"💬 To chat with your technician:\n1. Open My Orders\n2. Pick the order\n3. Open the chat\n4. Start writing",
			"💬 To chat with the client:\n1. Open Pending Orders\n2. Pick the order\n3. Open the chat\n4. Start writing",
			"🔐 Please log in to message service providers.",
		)},
		{IntentAccount, []string{"login", "sign in", "register", "sign up", "account", "حساب", "تسجيل"}, fixed(accountText)},
		{IntentAbout, []string{"about", "who", "company", "mission", "من", "شركة"}, fixed(aboutText)},
		{IntentContact, []string{"contact", "help", "support", "اتصال", "مساعدة"}, fixed(contactText)},
		{IntentFallback, nil, fallbackAnswer},
	}
}
