// Package resolvers 把每个查询、变更和订阅操作包进策略管道后交给服务层。
// 传输层（HTTP、WebSocket）只与 Resolver 交互。
package resolvers

import (
	"context"

	"remix-go/internal/apperrors"
	"remix-go/internal/events"
	"remix-go/internal/models"
	"remix-go/internal/policy"
	"remix-go/internal/services"
)

var (
	errNotSelf = apperrors.Authorization("只能访问自己的数据")
)

// Services 汇总 Resolver 依赖的服务。
type Services struct {
	Auth          services.AuthService
	Users         services.UserService
	FriendRequest services.FriendRequestService
	Groups        services.GroupService
	Messages      services.MessageService
	ReadPositions services.ReadPositionService
}

// Resolver 是全部操作的入口。
type Resolver struct {
	svc        Services
	subscriber events.Subscriber
	public     *policy.Pipeline
	gated      *policy.Pipeline
}

// New 创建 Resolver。public 用于注册与登录，其余操作走 gated。
func New(svc Services, subscriber events.Subscriber, public, gated *policy.Pipeline) *Resolver {
	return &Resolver{
		svc:        svc,
		subscriber: subscriber,
		public:     public,
		gated:      gated,
	}
}

func call(op, credential string) *policy.Call {
	return &policy.Call{Operation: op, Credential: credential}
}

func self(c *policy.Call, userID uint) error {
	if c.UserID() != userID {
		return errNotSelf
	}
	return nil
}

// ---- 用户与认证 ----

func (r *Resolver) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	return policy.Run(ctx, r.public, call("createUser", ""), func(ctx context.Context, _ *policy.Call) (*models.User, error) {
		if err := validateInput(in); err != nil {
			return nil, err
		}
		return r.svc.Auth.CreateUser(ctx, services.CreateUserInput{
			Username:    in.Username,
			Password:    in.Password,
			Email:       in.Email,
			PhoneNumber: in.PhoneNumber,
			Name:        in.Name,
			Description: in.Description,
			IconURL:     in.IconURL,
			Color:       in.Color,
		})
	})
}

func (r *Resolver) LoginUserWithEmail(ctx context.Context, in EmailLoginInput) (*models.User, error) {
	return policy.Run(ctx, r.public, call("loginUserWithEmail", ""), func(ctx context.Context, _ *policy.Call) (*models.User, error) {
		if err := validateInput(in); err != nil {
			return nil, err
		}
		return r.svc.Auth.LoginWithEmail(ctx, in.Email, in.Password)
	})
}

func (r *Resolver) LoginUserWithPhone(ctx context.Context, in PhoneLoginInput) (*models.User, error) {
	return policy.Run(ctx, r.public, call("loginUserWithPhone", ""), func(ctx context.Context, _ *policy.Call) (*models.User, error) {
		if err := validateInput(in); err != nil {
			return nil, err
		}
		return r.svc.Auth.LoginWithPhone(ctx, in.PhoneNumber, in.Password)
	})
}

func (r *Resolver) Logout(ctx context.Context, credential string) error {
	return r.gated.Wrap(func(ctx context.Context, c *policy.Call) error {
		return r.svc.Auth.Logout(ctx, c.Principal)
	})(ctx, call("logout", credential))
}

func (r *Resolver) User(ctx context.Context, credential string, id uint) (*models.User, error) {
	return policy.Run(ctx, r.gated, call("User", credential), func(ctx context.Context, _ *policy.Call) (*models.User, error) {
		return r.svc.Users.GetUser(ctx, id)
	})
}

func (r *Resolver) Users(ctx context.Context, credential, phrase string) ([]models.User, error) {
	return policy.Run(ctx, r.gated, call("users", credential), func(ctx context.Context, _ *policy.Call) ([]models.User, error) {
		return r.svc.Users.SearchUsers(ctx, phrase)
	})
}

func (r *Resolver) RelevantUsers(ctx context.Context, credential string) ([]models.User, error) {
	return policy.Run(ctx, r.gated, call("relevantUsers", credential), func(ctx context.Context, c *policy.Call) ([]models.User, error) {
		return r.svc.Users.RelevantUsers(ctx, c.UserID())
	})
}

func (r *Resolver) UserFriends(ctx context.Context, credential string, id uint) ([]models.User, error) {
	return policy.Run(ctx, r.gated, call("User.friends", credential), func(ctx context.Context, _ *policy.Call) ([]models.User, error) {
		return r.svc.FriendRequest.GetFriendsList(ctx, id)
	})
}

func (r *Resolver) UserGroups(ctx context.Context, credential string, id uint) ([]models.Group, error) {
	return policy.Run(ctx, r.gated, call("User.groups", credential), func(ctx context.Context, _ *policy.Call) ([]models.Group, error) {
		return r.svc.Groups.GetUserGroups(ctx, id)
	})
}

// UserFriendRequests 只返回当前用户收到的请求。
func (r *Resolver) UserFriendRequests(ctx context.Context, credential string, id uint) ([]models.FriendRequest, error) {
	return policy.Run(ctx, r.gated, call("User.friendRequests", credential), func(ctx context.Context, c *policy.Call) ([]models.FriendRequest, error) {
		if err := self(c, id); err != nil {
			return nil, err
		}
		return r.svc.FriendRequest.ListPendingRequests(ctx, id)
	})
}

// AllMessages 只对当前用户开放。
func (r *Resolver) AllMessages(ctx context.Context, credential string, id uint) ([]models.Message, error) {
	return policy.Run(ctx, r.gated, call("User.allMessages", credential), func(ctx context.Context, c *policy.Call) ([]models.Message, error) {
		if err := self(c, id); err != nil {
			return nil, err
		}
		return r.svc.Messages.AllMessages(ctx, id)
	})
}

// ---- 好友 ----

func (r *Resolver) CreateFriendRequest(ctx context.Context, credential string, in CreateFriendRequestInput) (uint, error) {
	return policy.Run(ctx, r.gated, call("createFriendRequest", credential), func(ctx context.Context, c *policy.Call) (uint, error) {
		if err := validateInput(in); err != nil {
			return 0, err
		}
		from := in.FromUserID
		if from == 0 {
			from = c.UserID()
		}
		req, err := r.svc.FriendRequest.CreateFriendRequest(ctx, from, in.ToUserID, in.Message)
		if err != nil {
			return 0, err
		}
		return req.ID, nil
	})
}

func (r *Resolver) AcceptFriendRequest(ctx context.Context, credential string, friendRequestID uint) (uint, error) {
	return policy.Run(ctx, r.gated, call("acceptFriendRequest", credential), func(ctx context.Context, c *policy.Call) (uint, error) {
		return r.svc.FriendRequest.AcceptFriendRequest(ctx, c.UserID(), friendRequestID)
	})
}

func (r *Resolver) RejectFriendRequest(ctx context.Context, credential string, friendRequestID uint) (uint, error) {
	return policy.Run(ctx, r.gated, call("rejectFriendRequest", credential), func(ctx context.Context, c *policy.Call) (uint, error) {
		if err := r.svc.FriendRequest.RejectFriendRequest(ctx, c.UserID(), friendRequestID); err != nil {
			return 0, err
		}
		return friendRequestID, nil
	})
}

// ---- 群组与聊天 ----

func (r *Resolver) Group(ctx context.Context, credential string, id uint) (*models.Group, error) {
	return policy.Run(ctx, r.gated, call("Group", credential), func(ctx context.Context, _ *policy.Call) (*models.Group, error) {
		return r.svc.Groups.GetGroup(ctx, id)
	})
}

func (r *Resolver) GroupChats(ctx context.Context, credential string, id uint) ([]models.Chat, error) {
	return policy.Run(ctx, r.gated, call("Group.chats", credential), func(ctx context.Context, _ *policy.Call) ([]models.Chat, error) {
		return r.svc.Groups.GetChats(ctx, id)
	})
}

func (r *Resolver) GroupMembers(ctx context.Context, credential string, id uint) ([]models.User, error) {
	return policy.Run(ctx, r.gated, call("Group.members", credential), func(ctx context.Context, _ *policy.Call) ([]models.User, error) {
		return r.svc.Groups.GetMembers(ctx, id)
	})
}

func (r *Resolver) GroupJoinRequests(ctx context.Context, credential string, id uint) ([]models.GroupRequest, error) {
	return policy.Run(ctx, r.gated, call("Group.requests", credential), func(ctx context.Context, c *policy.Call) ([]models.GroupRequest, error) {
		return r.svc.Groups.ListJoinRequests(ctx, c.UserID(), id)
	})
}

func (r *Resolver) CreateGroup(ctx context.Context, credential string, in CreateGroupInput) (*models.Group, error) {
	return policy.Run(ctx, r.gated, call("createGroup", credential), func(ctx context.Context, _ *policy.Call) (*models.Group, error) {
		if err := validateInput(in); err != nil {
			return nil, err
		}
		return r.svc.Groups.CreateGroup(ctx, in.Name, in.IconURL, in.Description)
	})
}

func (r *Resolver) AddGroupMember(ctx context.Context, credential string, groupID, userID uint) error {
	return r.gated.Wrap(func(ctx context.Context, c *policy.Call) error {
		return r.svc.Groups.AddMember(ctx, c.UserID(), groupID, userID)
	})(ctx, call("addGroupMember", credential))
}

func (r *Resolver) RemoveGroupMember(ctx context.Context, credential string, groupID, userID uint) error {
	return r.gated.Wrap(func(ctx context.Context, c *policy.Call) error {
		return r.svc.Groups.RemoveMember(ctx, c.UserID(), groupID, userID)
	})(ctx, call("removeGroupMember", credential))
}

func (r *Resolver) CreateChat(ctx context.Context, credential string, in CreateChatInput) (*models.Chat, error) {
	return policy.Run(ctx, r.gated, call("createChat", credential), func(ctx context.Context, c *policy.Call) (*models.Chat, error) {
		if err := validateInput(in); err != nil {
			return nil, err
		}
		return r.svc.Groups.CreateChat(ctx, c.UserID(), in.GroupID, in.Name)
	})
}

func (r *Resolver) Chat(ctx context.Context, credential string, id uint) (*models.Chat, error) {
	return policy.Run(ctx, r.gated, call("Chat", credential), func(ctx context.Context, _ *policy.Call) (*models.Chat, error) {
		return r.svc.Groups.GetChat(ctx, id)
	})
}

func (r *Resolver) ChatMessages(ctx context.Context, credential string, id uint) ([]models.Message, error) {
	return policy.Run(ctx, r.gated, call("Chat.messages", credential), func(ctx context.Context, c *policy.Call) ([]models.Message, error) {
		return r.svc.Messages.GetMessages(ctx, c.UserID(), id)
	})
}

// ---- 入群申请与邀请 ----

func (r *Resolver) CreateGroupRequest(ctx context.Context, credential string, in CreateGroupRequestInput) (uint, error) {
	return policy.Run(ctx, r.gated, call("createGroupRequest", credential), func(ctx context.Context, c *policy.Call) (uint, error) {
		if err := validateInput(in); err != nil {
			return 0, err
		}
		req, err := r.svc.Groups.CreateGroupRequest(ctx, c.UserID(), in.GroupID, in.Message)
		if err != nil {
			return 0, err
		}
		return req.ID, nil
	})
}

func (r *Resolver) CreateGroupInvitation(ctx context.Context, credential string, in CreateGroupInvitationInput) (uint, error) {
	return policy.Run(ctx, r.gated, call("createGroupInvitation", credential), func(ctx context.Context, c *policy.Call) (uint, error) {
		if err := validateInput(in); err != nil {
			return 0, err
		}
		inv, err := r.svc.Groups.CreateGroupInvitation(ctx, c.UserID(), in.ToUserID, in.ForGroupID, in.Message)
		if err != nil {
			return 0, err
		}
		return inv.ID, nil
	})
}

func (r *Resolver) AcceptGroupRequest(ctx context.Context, credential string, requestID uint) (uint, error) {
	return policy.Run(ctx, r.gated, call("acceptGroupRequest", credential), func(ctx context.Context, c *policy.Call) (uint, error) {
		return r.svc.Groups.AcceptGroupRequest(ctx, c.UserID(), requestID)
	})
}

func (r *Resolver) GroupInvitations(ctx context.Context, credential string) ([]models.GroupRequest, error) {
	return policy.Run(ctx, r.gated, call("groupInvitations", credential), func(ctx context.Context, c *policy.Call) ([]models.GroupRequest, error) {
		return r.svc.Groups.ListGroupInvitations(ctx, c.UserID())
	})
}

// ---- 消息与已读位置 ----

func (r *Resolver) CreateMessage(ctx context.Context, credential string, in CreateMessageInput) (*models.Message, error) {
	return policy.Run(ctx, r.gated, call("createMessage", credential), func(ctx context.Context, c *policy.Call) (*models.Message, error) {
		if err := validateInput(in); err != nil {
			return nil, err
		}
		return r.svc.Messages.CreateMessage(ctx, c.UserID(), in.ChatID, in.Type, in.Data)
	})
}

func (r *Resolver) CreateMessageWithExistingContent(ctx context.Context, credential string, in CreateMessageWithExistingContentInput) (*models.Message, error) {
	return policy.Run(ctx, r.gated, call("createMessageWithExistingContent", credential), func(ctx context.Context, c *policy.Call) (*models.Message, error) {
		if err := validateInput(in); err != nil {
			return nil, err
		}
		return r.svc.Messages.CreateMessageWithExistingContent(ctx, c.UserID(), in.ContentID, in.ToChatID)
	})
}

func (r *Resolver) UpdateReadPosition(ctx context.Context, credential string, in UpdateReadPositionInput) (*models.ReadPosition, error) {
	return policy.Run(ctx, r.gated, call("updateReadPosition", credential), func(ctx context.Context, c *policy.Call) (*models.ReadPosition, error) {
		if err := validateInput(in); err != nil {
			return nil, err
		}
		return r.svc.ReadPositions.UpdateReadPosition(ctx, c.UserID(), in.ForMessageID)
	})
}

func (r *Resolver) ReadPosition(ctx context.Context, credential string, chatID uint) (*models.ReadPosition, error) {
	return policy.Run(ctx, r.gated, call("readPosition", credential), func(ctx context.Context, c *policy.Call) (*models.ReadPosition, error) {
		return r.svc.ReadPositions.GetReadPosition(ctx, c.UserID(), chatID)
	})
}

// ---- 订阅 ----

// Subscription 是已建立的订阅。UserID 是实际订阅的用户，调用方省略 userId 时取自凭证。
type Subscription struct {
	UserID uint
	Events <-chan *events.Event
}

// NewFriendRequest 订阅发给 toUserID 的好友请求。ctx 结束时订阅释放。
func (r *Resolver) NewFriendRequest(ctx context.Context, credential string, toUserID uint) (*Subscription, error) {
	return r.subscribe(ctx, "newFriendRequest", credential, events.TopicFriendRequestCreated, toUserID)
}

// NewMessage 订阅 forUserID 所在群组的新消息。
func (r *Resolver) NewMessage(ctx context.Context, credential string, forUserID uint) (*Subscription, error) {
	return r.subscribe(ctx, "newMessage", credential, events.TopicMessageCreated, forUserID)
}

func (r *Resolver) subscribe(ctx context.Context, op, credential string, topic events.Topic, userID uint) (*Subscription, error) {
	return policy.Run(ctx, r.gated, call(op, credential), func(_ context.Context, c *policy.Call) (*Subscription, error) {
		if userID == 0 {
			userID = c.UserID()
		}
		if err := self(c, userID); err != nil {
			return nil, err
		}
		// 订阅生命周期跟随调用方的 ctx，而不是管道内部的 ctx
		ch, err := r.subscriber.Subscribe(ctx, topic, userID)
		if err != nil {
			return nil, err
		}
		return &Subscription{UserID: userID, Events: ch}, nil
	})
}

// Authenticate 只走认证管道，返回当前用户 ID。供上传等不经过服务层的入口使用。
func (r *Resolver) Authenticate(ctx context.Context, op, credential string) (uint, error) {
	return policy.Run(ctx, r.gated, call(op, credential), func(_ context.Context, c *policy.Call) (uint, error) {
		return c.UserID(), nil
	})
}
