package domain

// transitions 是唯一的流转表：当前状态 + 事件 -> 目标状态。
// 守卫条件（库存、核销码）由调用方在查表之后执行。
var transitions = map[State]map[EventKind]State{
	StatePlaced: {
		EventAccept:              StateConfirmed,
		EventReject:              StateCancelled,
		EventRequestAlternatives: StateAskingAlternatives,
		EventCancel:              StateCancelled,
	},
	StateAskingAlternatives: {
		EventSubmitAlternativesProposal: StateAwaitingBuyerDecision,
		EventCancel:                     StateCancelled,
	},
	StateAwaitingBuyerDecision: {
		EventBuyerRespondWithModifiedCart: StateNeedsSellerReview,
		EventCancel:                       StateCancelled,
	},
	StateNeedsSellerReview: {
		EventConfirmModification: StateConfirmed,
		EventReject:              StateCancelled,
		EventCancel:              StateCancelled,
	},
	StateConfirmed: {
		EventAdvanceStatus: StatePreparing,
		EventCancel:        StateCancelled,
	},
	StatePreparing: {
		EventAdvanceStatus: StateReadyForPickup,
		EventCancel:        StateCancelled,
	},
	StateReadyForPickup: {
		EventAdvanceStatus:          StateDelivered,
		EventSubmitVerificationCode: StateDelivered,
		EventCancel:                 StateCancelled,
	},
}

// NextState 查表得到目标状态；终态没有任何出边
func NextState(from State, kind EventKind) (State, bool) {
	to, ok := transitions[from][kind]
	return to, ok
}

// AllowedEvents 返回某状态下可以接受的事件
func AllowedEvents(from State) []EventKind {
	out := make([]EventKind, 0, len(transitions[from]))
	for _, k := range []EventKind{
		EventAccept, EventReject, EventRequestAlternatives, EventSubmitAlternativesProposal,
		EventBuyerRespondWithModifiedCart, EventConfirmModification, EventAdvanceStatus,
		EventCancel, EventSubmitVerificationCode,
	} {
		if _, ok := transitions[from][k]; ok {
			out = append(out, k)
		}
	}
	return out
}
