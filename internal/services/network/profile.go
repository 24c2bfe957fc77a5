package network

import (
	"sort"
	"strconv"

	"fraudguard/internal/models"
	"fraudguard/internal/services/pattern"

	"github.com/shopspring/decimal"
)

// Profile summarises a user's recent behaviour. It is derived on every
// build and never stored.
type Profile struct {
	UserID          uint              `json:"user_id"`
	KnownRecipients []string          `json:"known_recipients"`
	CommonAmounts   []decimal.Decimal `json:"common_amounts"`

	// folded recipient names
	recipients map[string]struct{}
}

// knows reports whether the profile's recent transfers name u by name,
// email or ID.
func (p *Profile) knows(u *models.User, f *folder) bool {
	if p == nil || u == nil || len(p.recipients) == 0 {
		return false
	}
	for _, id := range []string{f.fold(u.Name), f.fold(u.Email), strconv.FormatUint(uint64(u.ID), 10)} {
		if id == "" {
			continue
		}
		if _, ok := p.recipients[id]; ok {
			return true
		}
	}
	return false
}

// buildProfile expects history ordered newest first.
func buildProfile(userID uint, history []*models.Transaction, extractor *pattern.Extractor, f *folder) *Profile {
	if len(history) > ProfileHistoryLimit {
		history = history[:ProfileHistoryLimit]
	}

	p := &Profile{
		UserID:          userID,
		KnownRecipients: []string{},
		recipients:      make(map[string]struct{}),
	}

	counts := make(map[string]int)
	buckets := make(map[string]decimal.Decimal)

	for _, tx := range history {
		b := roundToBucket(tx.Amount)
		k := b.String()
		counts[k]++
		buckets[k] = b

		if tx.Type != models.TransactionTypeTransfer {
			continue
		}
		m, ok := extractor.Extract(tx.Description)
		if !ok {
			continue
		}
		key := f.fold(m.Value)
		if _, seen := p.recipients[key]; seen {
			continue
		}
		p.recipients[key] = struct{}{}
		p.KnownRecipients = append(p.KnownRecipients, m.Value)
	}

	p.CommonAmounts = commonAmounts(counts, buckets)
	return p
}

func roundToBucket(amount decimal.Decimal) decimal.Decimal {
	return amount.Div(amountBucket).Round(0).Mul(amountBucket)
}

// commonAmounts ranks buckets by frequency; ties go to the smaller amount.
func commonAmounts(counts map[string]int, buckets map[string]decimal.Decimal) []decimal.Decimal {
	ranked := make([]decimal.Decimal, 0, len(buckets))
	for _, b := range buckets {
		ranked = append(ranked, b)
	}
	sort.Slice(ranked, func(i, j int) bool {
		ci, cj := counts[ranked[i].String()], counts[ranked[j].String()]
		if ci != cj {
			return ci > cj
		}
		return ranked[i].LessThan(ranked[j])
	})
	if len(ranked) > CommonAmountCount {
		ranked = ranked[:CommonAmountCount]
	}
	return ranked
}
