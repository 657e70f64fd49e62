// Package models defines the domain models for the CLE License Enforcement Service.
// This file contains the aggregation algebra used to fold concurrent licenses
// into one synthetic grant.
package models

import "time"

// GreaterLimit returns the more permissive of two optional limits. A nil limit
// means unlimited, so nil propagates: max(x, unlimited) is unlimited. The
// operation is commutative and never aliases its inputs.
// GreaterLimit 返回两个可选限制中较宽松的一个。nil 限制表示无限制，因此 nil 会传播：
// max(x, 无限) 即无限。该运算满足交换律，且不会与输入产生别名。
//
// Parameters:
//   - a: The first optional limit.
//   - b: The second optional limit.
//
// Returns:
//   - *int64: The greater limit, or nil when either input is unlimited.
func GreaterLimit(a, b *int64) *int64 {
	if a == nil || b == nil {
		return nil
	}

	v := *a
	if *b > v {
		v = *b
	}
	return &v
}

// LesserLimit returns the stricter of two optional limits. A nil limit means
// unlimited, so nil never wins: min(x, unlimited) is x; the result is nil only
// when both inputs are unlimited. The operation is commutative and never
// aliases its inputs.
// LesserLimit 返回两个可选限制中较严格的一个。nil 限制表示无限制，因此 nil 永远不会胜出：
// min(x, 无限) 即 x；只有当两个输入都为无限时结果才为 nil。该运算满足交换律，
// 且不会与输入产生别名。
//
// Parameters:
//   - a: The first optional limit.
//   - b: The second optional limit.
//
// Returns:
//   - *int64: The lesser limit, or nil when both inputs are unlimited.
func LesserLimit(a, b *int64) *int64 {
	if a == nil && b == nil {
		return nil
	}
	if a == nil {
		v := *b
		return &v
	}
	if b == nil {
		v := *a
		return &v
	}

	v := *a
	if *b < v {
		v = *b
	}
	return &v
}

// LesserExpiry returns the earlier of two optional deadlines. A nil deadline
// means perpetual, and nil never wins: min(t, perpetual) is t; the result is
// nil only when both inputs are perpetual. The operation is commutative and
// never aliases its inputs.
// LesserExpiry 返回两个可选截止时间中较早的一个。nil 截止时间表示永久，且 nil 永远
// 不会胜出：min(t, 永久) 即 t；只有当两个输入都为永久时结果才为 nil。
// 该运算满足交换律，且不会与输入产生别名。
//
// Parameters:
//   - a: The first optional deadline.
//   - b: The second optional deadline.
//
// Returns:
//   - *time.Time: The earlier deadline, or nil when both inputs are perpetual.
func LesserExpiry(a, b *time.Time) *time.Time {
	if a == nil && b == nil {
		return nil
	}
	if a == nil {
		v := *b
		return &v
	}
	if b == nil {
		v := *a
		return &v
	}

	v := *a
	if b.Before(v) {
		v = *b
	}
	return &v
}

// JoinIssuers returns the set union of two issuer lists, preserving first-seen
// order. A nil list is the identity element. Neither input is mutated; the
// result is always a fresh slice (nil only when both inputs are empty).
// JoinIssuers 返回两个颁发者列表的集合并集，保持首次出现的顺序。nil 列表是单位元。
// 两个输入都不会被修改；结果始终是新分配的切片（仅当两个输入都为空时为 nil）。
//
// Parameters:
//   - acc: The accumulated issuer list.
//   - next: The issuer list to merge in.
//
// Returns:
//   - []string: The union of both lists.
func JoinIssuers(acc, next []string) []string {
	if len(acc) == 0 && len(next) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(acc)+len(next))
	result := make([]string, 0, len(acc)+len(next))

	for _, iss := range acc {
		if !seen[iss] {
			seen[iss] = true
			result = append(result, iss)
		}
	}
	for _, iss := range next {
		if !seen[iss] {
			seen[iss] = true
			result = append(result, iss)
		}
	}

	return result
}

// FoldLicenses reduces a set of concurrently applicable licenses into one
// synthetic License via an explicit pure left fold. Limits combine with
// GreaterLimit, issuer whitelists with JoinIssuers, the window start relaxes
// to the earliest (nil counts as the beginning of time), and the expiry
// tightens with LesserExpiry to the earliest explicit deadline. Identity
// fields are taken from the first contributor. The inputs are never mutated
// and the result shares no state with them. An empty input folds to nil.
// FoldLicenses 通过显式的纯左折叠，将一组同时适用的许可证归约为一个合成 License。
// 限制使用 GreaterLimit 合并，颁发者白名单使用 JoinIssuers 合并，窗口开始时间放宽
// 至最早值（nil 视为时间起点），过期时间则使用 LesserExpiry 收紧至最早的显式截止时间。
// 身份字段取自第一个贡献者。输入永远不会被修改，结果与输入不共享任何状态。
// 空输入折叠为 nil。
//
// Parameters:
//   - licenses: The licenses to fold, all applicable at the same instant.
//
// Returns:
//   - *License: The synthetic aggregate, or nil when the input is empty.
func FoldLicenses(licenses []*License) *License {
	if len(licenses) == 0 {
		return nil
	}

	agg := licenses[0].Clone()
	for _, next := range licenses[1:] {
		agg = foldPair(agg, next)
	}

	return agg
}

// foldPair merges next into acc, producing the combined grant. acc is owned by
// the fold and may be reused; next is never mutated.
func foldPair(acc, next *License) *License {
	// Window start: earliest wins, nil is the beginning of time.
	if acc.NotBefore == nil || next.NotBefore == nil {
		acc.NotBefore = nil
	} else if next.NotBefore.Before(*acc.NotBefore) {
		nb := *next.NotBefore
		acc.NotBefore = &nb
	}

	// Window end: earliest explicit expiry wins. A perpetual contributor
	// never erases a bound another contributor set, so the aggregate keeps
	// the most conservative deadline found so far.
	acc.ExpiresAt = LesserExpiry(acc.ExpiresAt, next.ExpiresAt)

	// Grace: the most lenient explicit grace survives; nil means the token
	// carried none and the configured default applies at evaluation time.
	if acc.GracePeriod == nil {
		if next.GracePeriod != nil {
			gp := *next.GracePeriod
			acc.GracePeriod = &gp
		}
	} else if next.GracePeriod != nil && *next.GracePeriod > *acc.GracePeriod {
		gp := *next.GracePeriod
		acc.GracePeriod = &gp
	}

	acc.ClientLimit = GreaterLimit(acc.ClientLimit, next.ClientLimit)
	acc.IssuerLimit = GreaterLimit(acc.IssuerLimit, next.IssuerLimit)
	acc.ValidIssuers = JoinIssuers(acc.ValidIssuers, next.ValidIssuers)

	return acc
}

// StrictestClientLimit folds the explicit client limits of the given licenses
// with LesserLimit: the floor an operator keeps even if the most generous
// grant lapses. Licenses without a client limit do not drag the floor down.
// StrictestClientLimit 使用 LesserLimit 折叠给定许可证的显式客户端限制：
// 即使最宽松的授权失效，运营方仍可保有的下限。没有客户端限制的许可证不会拉低该下限。
//
// Parameters:
//   - licenses: The licenses to fold.
//
// Returns:
//   - *int64: The strictest explicit client limit, or nil when none carries one.
func StrictestClientLimit(licenses []*License) *int64 {
	var floor *int64
	for _, lic := range licenses {
		floor = LesserLimit(floor, lic.ClientLimit)
	}
	return floor
}
