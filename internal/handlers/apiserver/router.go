package apiserver

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"remix-go/internal/config"
	"remix-go/internal/resolvers"
	"remix-go/internal/storage"
)

// RouterOptions 汇总构建路由所需的依赖。Metrics、Subscriptions 与 FileStore 可以为空。
type RouterOptions struct {
	Config        config.Config
	FileStore     storage.FileStore
	Metrics       http.Handler
	Subscriptions http.Handler
	Logger        *zap.Logger
}

// NewRouter 注册全部 HTTP 路由并套上 CORS。认证由每个操作的策略管道完成，路由层不做拦截。
func NewRouter(resolver *resolvers.Resolver, opts RouterOptions) http.Handler {
	authHandler := NewAuthHandler(resolver)
	userHandler := NewUserHandler(resolver)
	friendReqHandler := NewFriendRequestHandler(resolver)
	groupHandler := NewGroupHandler(resolver)
	chatHandler := NewChatHandler(resolver)

	r := mux.NewRouter()

	// 公开路由
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/users", authHandler.CreateUser).Methods(http.MethodPost)
	authRouter.HandleFunc("/login/email", authHandler.LoginWithEmail).Methods(http.MethodPost)
	authRouter.HandleFunc("/login/phone", authHandler.LoginWithPhone).Methods(http.MethodPost)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)

	// 用户
	api.HandleFunc("/users", userHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID:[0-9]+}", userHandler.GetUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID:[0-9]+}/friends", userHandler.Friends).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID:[0-9]+}/groups", userHandler.Groups).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID:[0-9]+}/friend-requests", userHandler.FriendRequests).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID:[0-9]+}/messages", userHandler.AllMessages).Methods(http.MethodGet)
	api.HandleFunc("/relevant-users", userHandler.Relevant).Methods(http.MethodGet)

	// 群组
	api.HandleFunc("/groups", groupHandler.CreateGroup).Methods(http.MethodPost)
	api.HandleFunc("/groups/{groupID:[0-9]+}", groupHandler.GetGroup).Methods(http.MethodGet)
	api.HandleFunc("/groups/{groupID:[0-9]+}/chats", groupHandler.Chats).Methods(http.MethodGet)
	api.HandleFunc("/groups/{groupID:[0-9]+}/chats", groupHandler.CreateChat).Methods(http.MethodPost)
	api.HandleFunc("/groups/{groupID:[0-9]+}/members", groupHandler.Members).Methods(http.MethodGet)
	api.HandleFunc("/groups/{groupID:[0-9]+}/members/{userID:[0-9]+}", groupHandler.AddMember).Methods(http.MethodPost)
	api.HandleFunc("/groups/{groupID:[0-9]+}/members/{userID:[0-9]+}", groupHandler.RemoveMember).Methods(http.MethodDelete)
	api.HandleFunc("/groups/{groupID:[0-9]+}/requests", groupHandler.JoinRequests).Methods(http.MethodGet)
	api.HandleFunc("/group-requests", groupHandler.CreateGroupRequest).Methods(http.MethodPost)
	api.HandleFunc("/group-requests/{requestID:[0-9]+}/accept", groupHandler.AcceptGroupRequest).Methods(http.MethodPost)
	api.HandleFunc("/group-invitations", groupHandler.CreateGroupInvitation).Methods(http.MethodPost)
	api.HandleFunc("/group-invitations", userHandler.Invitations).Methods(http.MethodGet)

	// 聊天与消息
	api.HandleFunc("/chats/{chatID:[0-9]+}", chatHandler.GetChat).Methods(http.MethodGet)
	api.HandleFunc("/chats/{chatID:[0-9]+}/messages", chatHandler.Messages).Methods(http.MethodGet)
	api.HandleFunc("/chats/{chatID:[0-9]+}/messages", chatHandler.CreateMessage).Methods(http.MethodPost)
	api.HandleFunc("/chats/{chatID:[0-9]+}/forward", chatHandler.Forward).Methods(http.MethodPost)
	api.HandleFunc("/chats/{chatID:[0-9]+}/read-position", chatHandler.ReadPosition).Methods(http.MethodGet)
	api.HandleFunc("/read-positions", chatHandler.UpdateReadPosition).Methods(http.MethodPut)

	// 好友请求
	friendRequestRouter := api.PathPrefix("/friend-requests").Subrouter()
	friendRequestRouter.HandleFunc("", friendReqHandler.Create).Methods(http.MethodPost)
	friendRequestRouter.HandleFunc("/{requestID:[0-9]+}/accept", friendReqHandler.Accept).Methods(http.MethodPost)
	friendRequestRouter.HandleFunc("/{requestID:[0-9]+}/reject", friendReqHandler.Reject).Methods(http.MethodPost)

	// 上传与静态文件
	if opts.FileStore != nil {
		uploadHandler := NewUploadHandler(resolver, opts.FileStore, opts.Config.Storage, opts.Logger)
		api.HandleFunc("/upload", uploadHandler.UploadFile).Methods(http.MethodPost)

		if opts.Config.Storage.Type == "" || opts.Config.Storage.Type == "local" {
			staticPath := strings.TrimSuffix(opts.Config.Storage.BaseURL, "/") + "/"
			r.PathPrefix(staticPath).Handler(http.StripPrefix(staticPath, http.FileServer(http.Dir(opts.Config.Storage.LocalPath))))
		}
	}

	if opts.Subscriptions != nil {
		r.Handle(opts.Config.Server.WebSocketPath, opts.Subscriptions).Methods(http.MethodGet)
	}
	if opts.Metrics != nil {
		r.Handle(opts.Config.APIServer.MetricsPath, opts.Metrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	cors := opts.Config.APIServer.CORS
	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cors.AllowedOrigins),
		handlers.AllowedMethods(cors.AllowedMethods),
		handlers.AllowedHeaders(cors.AllowedHeaders),
		handlers.ExposedHeaders(cors.ExposedHeaders),
		handlers.MaxAge(cors.MaxAge),
	}
	if cors.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}
	return handlers.CORS(corsOptions...)(r)
}
