// Package quota 判定用户是否还能创建新的作品集。
package quota

import "portfolioSaaS/internal/subscription"

// FreeLimit 是免费档允许持有的作品集数量。
const FreeLimit = 1

// Decision 是一次配额判定的结果。
type Decision struct {
	Allowed bool
	Reason  string
}

// CanCreate 判定是否允许保存。
// 更新已有作品集总是放行；无订阅按免费档处理。
func CanCreate(existing int64, sub *subscription.Subscription, isNew bool) Decision {
	if !isNew {
		return Decision{Allowed: true}
	}
	if NeedsFreeSlot(sub) && existing >= FreeLimit {
		return Decision{Reason: "free plan allows only one portfolio; upgrade to create more"}
	}
	return Decision{Allowed: true}
}

// NeedsFreeSlot 报告新建作品集是否要占用免费档名额。
func NeedsFreeSlot(sub *subscription.Subscription) bool {
	return sub == nil || sub.Plan == subscription.PlanFree
}
