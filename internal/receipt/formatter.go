package receipt

import (
	"strings"
	"time"

	"github.com/tokoanjar/pos-api/internal/pricing"
)

// ESC/POS control sequences for 58mm thermal paper (32 columns).
const (
	escInit   = "\x1B@"
	boldOn    = "\x1BE\x01"
	boldOff   = "\x1BE\x00"
	alignMid  = "\x1Ba\x01"
	alignLeft = "\x1Ba\x00"
	paperCut  = "\x1DV\x42\x00"

	lineWidth = 32
)

// Shop identity printed on every receipt.
const (
	ShopName     = "TOKO ANJAR FOTOCOPY & ATK"
	ShopAddress1 = "Jl. Raya Gajah - Dempet"
	ShopAddress2 = "(Depan Koramil Gajah)"
	ShopPhone    = "Telp/WA: 0895630183347"
)

var divider = strings.Repeat("=", lineWidth)
var thinDivider = strings.Repeat("-", lineWidth)

// FormatAmount renders a rupiah amount with dot thousand separators,
// e.g. 1234567 -> "1.234.567".
func FormatAmount(v pricing.Money) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := []byte{}
	n := 0
	for {
		if n > 0 && n%3 == 0 {
			s = append(s, '.')
		}
		s = append(s, byte('0'+v%10))
		v /= 10
		n++
		if v == 0 {
			break
		}
	}
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
	if neg {
		return "-" + string(s)
	}
	return string(s)
}

func rupiah(v pricing.Money) string { return "Rp " + FormatAmount(v) }

// paymentLabel maps the stored payment method onto the receipt wording.
func paymentLabel(method string) string {
	switch method {
	case PayDebit:
		return "Debit"
	case PayCredit:
		return "Kredit"
	case PayQRIS:
		return "QRIS"
	case PayTransfer:
		return "Transfer"
	default:
		return "Tunai"
	}
}

func cashPayment(method string) bool {
	return method == "" || method == PayCash
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// Thermal renders the receipt as an ESC/POS byte stream for 58mm paper.
func Thermal(rec Receipt, loc *time.Location) []byte {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	b.WriteString(escInit)
	b.WriteString(alignMid)
	bold(&b, divider)
	bold(&b, ShopName)
	bold(&b, divider)
	line(&b, ShopAddress1)
	line(&b, ShopAddress2)
	line(&b, ShopPhone)
	line(&b, "")
	bold(&b, divider)
	if rec.Manual {
		bold(&b, "NOTA MANUAL")
	} else {
		bold(&b, "STRUK PENJUALAN")
	}
	bold(&b, divider)
	line(&b, "Invoice: "+rec.InvoiceNumber)
	line(&b, "Tanggal: "+rec.CreatedAt.In(loc).Format("02/01/2006 15:04"))
	if rec.CustomerName != "" {
		line(&b, "Pelanggan: "+rec.CustomerName)
	}
	bold(&b, thinDivider)
	b.WriteString(alignLeft)

	for _, it := range rec.Items {
		line(&b, it.Name)
		qtyPrice := itoa(it.Qty) + " x " + rupiah(it.UnitPrice)
		line(&b, qtyPrice)
		bold(&b, padLeft(rupiah(it.LineTotal), lineWidth))
		line(&b, "")
	}

	bold(&b, thinDivider)
	line(&b, "Subtotal:"+boldOn+padLeft(rupiah(rec.Subtotal), lineWidth-9)+boldOff)
	if rec.Discount > 0 {
		line(&b, "Diskon:"+boldOn+padLeft("-"+rupiah(rec.Discount), lineWidth-7)+boldOff)
	}
	bold(&b, thinDivider)
	bold(&b, "TOTAL:"+padLeft(rupiah(rec.Total), lineWidth-6))
	if !rec.Manual {
		if cashPayment(rec.PaymentMethod) {
			line(&b, "Tunai:"+padLeft(rupiah(rec.Paid), lineWidth-6))
			line(&b, "Kembali:"+padLeft(rupiah(rec.Change), lineWidth-8))
		} else {
			line(&b, "Bayar: "+paymentLabel(rec.PaymentMethod))
		}
	}
	line(&b, "")

	b.WriteString(alignMid)
	bold(&b, divider)
	bold(&b, "TERIMA KASIH ATAS")
	bold(&b, "KUNJUNGAN ANDA!")
	line(&b, "")
	bold(&b, "Semoga Hari Anda Menyenangkan")
	bold(&b, divider)
	line(&b, "")
	b.WriteString(paperCut)
	return []byte(b.String())
}

// PlainText renders the receipt without control codes, for previews and
// log archives.
func PlainText(rec Receipt, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	for _, s := range []string{divider, ShopName, divider, ShopAddress1, ShopAddress2, ShopPhone, ""} {
		b.WriteString(s + "\n")
	}
	if rec.Manual {
		b.WriteString("NOTA MANUAL\n")
	} else {
		b.WriteString("STRUK PENJUALAN\n")
	}
	b.WriteString("Invoice: " + rec.InvoiceNumber + "\n")
	b.WriteString("Tanggal: " + rec.CreatedAt.In(loc).Format("02/01/2006 15:04") + "\n")
	if rec.CustomerName != "" {
		b.WriteString("Pelanggan: " + rec.CustomerName + "\n")
	}
	b.WriteString(thinDivider + "\n")
	for _, it := range rec.Items {
		b.WriteString(it.Name + "\n")
		b.WriteString(itoa(it.Qty) + " x " + rupiah(it.UnitPrice) + "\n")
		b.WriteString(padLeft(rupiah(it.LineTotal), lineWidth) + "\n")
	}
	b.WriteString(thinDivider + "\n")
	b.WriteString("Subtotal:" + padLeft(rupiah(rec.Subtotal), lineWidth-9) + "\n")
	if rec.Discount > 0 {
		b.WriteString("Diskon:" + padLeft("-"+rupiah(rec.Discount), lineWidth-7) + "\n")
	}
	b.WriteString("TOTAL:" + padLeft(rupiah(rec.Total), lineWidth-6) + "\n")
	if !rec.Manual {
		if cashPayment(rec.PaymentMethod) {
			b.WriteString("Tunai:" + padLeft(rupiah(rec.Paid), lineWidth-6) + "\n")
			b.WriteString("Kembali:" + padLeft(rupiah(rec.Change), lineWidth-8) + "\n")
		} else {
			b.WriteString("Bayar: " + paymentLabel(rec.PaymentMethod) + "\n")
		}
	}
	b.WriteString(divider + "\n")
	b.WriteString("TERIMA KASIH ATAS KUNJUNGAN ANDA!\n")
	return b.String()
}

func bold(b *strings.Builder, s string) {
	b.WriteString(boldOn + s + boldOff + "\n")
}

func line(b *strings.Builder, s string) {
	b.WriteString(s + "\n")
}
