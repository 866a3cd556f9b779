package event

import "github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/event"

// 应用内事件主题
const (
	// TopicSessionChanged 会话建立或清除，参数 *session.Session（清除时为 nil 指针）
	TopicSessionChanged event.EventType = "session:changed"

	// TopicTxPending 主交易已提交，参数 txflow.PendingTx
	TopicTxPending event.EventType = "tx:pending"

	// TopicTxCleared 待确认交易已结算，参数 txflow.PendingTx
	TopicTxCleared event.EventType = "tx:cleared"

	// TopicAlertChanged 告警列表变化，无参数
	TopicAlertChanged event.EventType = "alert:changed"

	// TopicViewRefreshed 农场快照已替换，无参数
	TopicViewRefreshed event.EventType = "view:refreshed"

	// TopicViewTick 估算已按刻度重算，参数 uint64 刻度
	TopicViewTick event.EventType = "view:tick"
)

// 钱包事件主题（本地钱包提供者内部使用）
const (
	TopicWalletAccountsChanged event.EventType = "wallet:accountsChanged"
	TopicWalletChainChanged    event.EventType = "wallet:chainChanged"
)
