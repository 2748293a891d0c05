package usecase

import (
	"time"

	"go.uber.org/zap"

	"gigpulse/internal/infrastructure/realtime"
	repository "gigpulse/internal/pkg/chat/persistence/repository/port"
)

// UseCases bundles the chat application services sharing one repository.
type UseCases struct {
	Create            *CreateConversationUseCase
	Join              *JoinConversationUseCase
	ListParticipants  *ListParticipantsUseCase
	ListConversations *ListConversationsUseCase
	Send              *SendMessageUseCase
	LoadHistory       *LoadHistoryUseCase
	ComputeUnread     *ComputeUnreadUseCase
	MarkRead          *MarkReadUseCase
	SetTyping         *SetTypingUseCase
	ExpireTyping      *ExpireTypingUseCase
}

// NewUseCases wires every chat use case. scheduler may be nil to disable the
// typing sweep; typingTTL is the age the sweep clears.
func NewUseCases(repo repository.ChatRepository, pub realtime.Publisher, scheduler TypingExpiryScheduler, typingTTL time.Duration, logger *zap.Logger) *UseCases {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("chat")
	return &UseCases{
		Create:            NewCreateConversationUseCase(repo),
		Join:              NewJoinConversationUseCase(repo),
		ListParticipants:  NewListParticipantsUseCase(repo),
		ListConversations: NewListConversationsUseCase(repo),
		Send:              NewSendMessageUseCase(repo, pub, logger),
		LoadHistory:       NewLoadHistoryUseCase(repo),
		ComputeUnread:     NewComputeUnreadUseCase(repo),
		MarkRead:          NewMarkReadUseCase(repo),
		SetTyping:         NewSetTypingUseCase(repo, pub, scheduler, logger),
		ExpireTyping:      NewExpireTypingUseCase(repo, pub, typingTTL, logger),
	}
}
