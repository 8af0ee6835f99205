// Package formatter формирует тексты сообщений WhatsApp.
// Все функции чистые: результат зависит только от входных данных и часового пояса отображения.
package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/subscription-notifier/internal/models"
)

// Formatter рендерит шаблоны, отображая даты в заданном часовом поясе.
type Formatter struct {
	loc *time.Location
}

// New создаёт Formatter. nil означает UTC.
func New(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{loc: loc}
}

// Currency форматирует сумму в реалах: "R$ 49.90".
func Currency(v float64) string {
	return fmt.Sprintf("R$ %.2f", v)
}

// Date форматирует дату как дд/мм/гггг в часовом поясе отображения.
func (f *Formatter) Date(t time.Time) string {
	return t.In(f.loc).Format("02/01/2006")
}

// ExpiringData данные для напоминания о скором окончании подписки.
type ExpiringData struct {
	UserName string
	PlanName string
	Amount   float64
	EndDate  time.Time
	DaysLeft int
}

// ExpiredData данные для уведомления об окончании подписки.
type ExpiredData struct {
	UserName string
	PlanName string
	Amount   float64
	EndDate  time.Time
}

// TesterExpiredData данные для уведомления об окончании тестового периода.
type TesterExpiredData struct {
	UserName  string
	StartedAt time.Time
	Grace     time.Duration
}

// ExpiringEmoji эмодзи напоминания в зависимости от оставшихся дней.
func ExpiringEmoji(daysLeft int) string {
	switch {
	case daysLeft <= 0:
		return "🚨"
	case daysLeft == 1:
		return "⚠️"
	default:
		return "⏰"
	}
}

func expiringWhen(daysLeft int) string {
	switch {
	case daysLeft <= 0:
		return "hoje"
	case daysLeft == 1:
		return "amanhã"
	default:
		return fmt.Sprintf("em %d dias", daysLeft)
	}
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "cliente"
	}
	return name
}

func planName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Premium"
	}
	return name
}

// SubscriptionExpiring напоминание о скором окончании подписки.
func (f *Formatter) SubscriptionExpiring(d ExpiringData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *Sua assinatura expira %s!*\n\n", ExpiringEmoji(d.DaysLeft), expiringWhen(d.DaysLeft))
	fmt.Fprintf(&b, "Olá, %s!\n\n", displayName(d.UserName))
	fmt.Fprintf(&b, "Sua assinatura do plano *%s* vence %s.\n\n", planName(d.PlanName), expiringWhen(d.DaysLeft))
	fmt.Fprintf(&b, "📅 Vencimento: %s\n", f.Date(d.EndDate))
	fmt.Fprintf(&b, "💰 Valor: %s\n\n", Currency(d.Amount))
	b.WriteString("Renove agora para continuar comparando os melhores preços de produtos Apple! 🍎")
	return b.String()
}

// SubscriptionExpired уведомление об окончании подписки.
func (f *Formatter) SubscriptionExpired(d ExpiredData) string {
	var b strings.Builder
	b.WriteString("❌ *Sua assinatura expirou*\n\n")
	fmt.Fprintf(&b, "Olá, %s!\n\n", displayName(d.UserName))
	fmt.Fprintf(&b, "Sua assinatura do plano *%s* expirou em %s.\n", planName(d.PlanName), f.Date(d.EndDate))
	fmt.Fprintf(&b, "💰 Valor para renovação: %s\n\n", Currency(d.Amount))
	b.WriteString("Renove sua assinatura para voltar a acessar as comparações de preços. 🍎")
	return b.String()
}

// TesterExpired уведомление об окончании тестового периода.
func (f *Formatter) TesterExpired(d TesterExpiredData) string {
	var b strings.Builder
	b.WriteString("⏳ *Seu período de teste terminou*\n\n")
	fmt.Fprintf(&b, "Olá, %s!\n\n", displayName(d.UserName))
	fmt.Fprintf(&b, "Seu acesso de teste de %s, iniciado em %s às %s, foi encerrado.\n\n",
		hours(d.Grace), f.Date(d.StartedAt), d.StartedAt.In(f.loc).Format("15:04"))
	b.WriteString("Assine um plano para continuar encontrando os melhores preços de produtos Apple! 🍎")
	return b.String()
}

// ProductUpdate уведомление об обновлении товара.
func (f *Formatter) ProductUpdate(d models.ProductUpdate) string {
	var b strings.Builder
	b.WriteString("📱 *Atualização de produto*\n\n")
	fmt.Fprintf(&b, "Olá, %s!\n\n", displayName(d.UserName))
	fmt.Fprintf(&b, "*%s*", d.ProductName)
	if d.PartnerName != "" {
		fmt.Fprintf(&b, " na %s", d.PartnerName)
	}
	fmt.Fprintf(&b, " está por %s.\n", Currency(d.Price))
	if d.URL != "" {
		fmt.Fprintf(&b, "\n🔗 %s", d.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

// PriceAlert уведомление о снижении цены.
func (f *Formatter) PriceAlert(d models.PriceAlert) string {
	var b strings.Builder
	b.WriteString("📉 *Alerta de preço!*\n\n")
	fmt.Fprintf(&b, "Olá, %s!\n\n", displayName(d.UserName))
	fmt.Fprintf(&b, "*%s*", d.ProductName)
	if d.PartnerName != "" {
		fmt.Fprintf(&b, " na %s", d.PartnerName)
	}
	fmt.Fprintf(&b, " baixou de %s para %s", Currency(d.OldPrice), Currency(d.NewPrice))
	if d.OldPrice > 0 && d.NewPrice < d.OldPrice {
		fmt.Fprintf(&b, " (-%.0f%%)", (d.OldPrice-d.NewPrice)/d.OldPrice*100)
	}
	b.WriteString(".\n")
	if d.URL != "" {
		fmt.Fprintf(&b, "\n🔗 %s", d.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Report периодический отчёт.
func (f *Formatter) Report(d models.Report) string {
	var b strings.Builder
	title := d.Title
	if title == "" {
		title = "Relatório"
	}
	fmt.Fprintf(&b, "📊 *%s*\n", title)
	fmt.Fprintf(&b, "Período: %s a %s\n\n", f.Date(d.PeriodStart), f.Date(d.PeriodEnd))
	if len(d.Items) == 0 {
		b.WriteString("Sem dados no período.")
		return b.String()
	}
	lines := make([]string, 0, len(d.Items))
	for _, item := range d.Items {
		lines = append(lines, fmt.Sprintf("• %s: %s", item.Label, item.Value))
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

func hours(d time.Duration) string {
	h := int(d.Hours())
	if h == 1 {
		return "1 hora"
	}
	return fmt.Sprintf("%d horas", h)
}
