package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"remix-go/internal/models"
	"remix-go/internal/storage"
)

var errInconsistent = errors.New("发现不一致的数据")

const timeLayout = "2006-01-02 15:04:05"

func parseID(arg, what string) (uint, error) {
	id, err := storage.StrToUint(arg)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("无效的%sID: %s", what, arg)
	}
	return id, nil
}

// =============================================================================
// show-group
// =============================================================================

func newShowGroupCmd(open func() (*gorm.DB, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "show-group <groupID>",
		Short: "显示群组、成员与聊天",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseID(args[0], "群组")
			if err != nil {
				return err
			}
			db, err := open()
			if err != nil {
				return err
			}
			return showGroup(cmd.Context(), db, cmd.OutOrStdout(), groupID)
		},
	}
}

func showGroup(ctx context.Context, db *gorm.DB, w io.Writer, groupID uint) error {
	groupRepo := storage.NewGormGroupRepository(db)
	group, err := groupRepo.GetGroupByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("查找群组失败: %w", err)
	}
	members, err := groupRepo.GetGroupMembers(ctx, groupID)
	if err != nil {
		return fmt.Errorf("获取成员失败: %w", err)
	}
	chats, err := storage.NewGormChatRepository(db).ListByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("获取聊天失败: %w", err)
	}

	fmt.Fprintf(w, "群组 %d 信息:\n", group.ID)
	fmt.Fprintln(w, "--------------------------------------")
	fmt.Fprintf(w, "名称: %s\n", group.Name)
	fmt.Fprintf(w, "描述: %s\n", group.Description)
	fmt.Fprintf(w, "私聊: %v\n", group.IsDirectMessage)
	fmt.Fprintf(w, "创建时间: %s\n", group.CreatedAt.Format(timeLayout))
	fmt.Fprintf(w, "成员 (%d 人):\n", len(members))
	for i, m := range members {
		fmt.Fprintf(w, "  #%d 用户ID: %d, 角色: %s, 加入时间: %s\n", i+1, m.UserID, m.Role, m.JoinedAt.Format(timeLayout))
	}
	fmt.Fprintf(w, "聊天 (%d 个):\n", len(chats))
	for _, c := range chats {
		fmt.Fprintf(w, "  ID: %d, 名称: %s\n", c.ID, c.Name)
	}
	return nil
}

// =============================================================================
// show-chat
// =============================================================================

func newShowChatCmd(open func() (*gorm.DB, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "show-chat <chatID>",
		Short: "显示聊天及其消息序号",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := parseID(args[0], "聊天")
			if err != nil {
				return err
			}
			db, err := open()
			if err != nil {
				return err
			}
			return showChat(cmd.Context(), db, cmd.OutOrStdout(), chatID)
		},
	}
}

func showChat(ctx context.Context, db *gorm.DB, w io.Writer, chatID uint) error {
	chat, err := storage.NewGormChatRepository(db).GetByID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("获取聊天失败: %w", err)
	}
	messages, err := storage.NewGormMessageRepository(db).ListByChat(ctx, chatID)
	if err != nil {
		return fmt.Errorf("获取消息失败: %w", err)
	}

	fmt.Fprintf(w, "聊天 %d 信息:\n", chat.ID)
	fmt.Fprintln(w, "--------------------------------------")
	fmt.Fprintf(w, "名称: %s\n", chat.Name)
	fmt.Fprintf(w, "所属群组: %d\n", chat.GroupID)
	fmt.Fprintf(w, "最新序号: %d\n", chat.LastSeq)
	fmt.Fprintf(w, "消息数量: %d\n", len(messages))
	for _, m := range messages {
		fmt.Fprintf(w, "  seq=%d ID: %d, 作者: %d, 内容: %d, 时间: %s\n", m.Seq, m.ID, m.UserID, m.ContentID, m.CreatedAt.Format(timeLayout))
	}
	return nil
}

// =============================================================================
// check-dm
// =============================================================================

func newCheckDMCmd(open func() (*gorm.DB, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "check-dm",
		Short: "检查每个私聊群组恰好有两名互为好友的成员",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			problems, err := checkDirectGroups(cmd.Context(), db)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, p := range problems {
				fmt.Fprintln(w, p)
			}
			if len(problems) > 0 {
				return errInconsistent
			}
			fmt.Fprintln(w, "私聊群组检查通过")
			return nil
		},
	}
}

// checkDirectGroups 返回所有违反私聊约束的描述，空切片表示一致。
func checkDirectGroups(ctx context.Context, db *gorm.DB) ([]string, error) {
	groupRepo := storage.NewGormGroupRepository(db)
	friendshipRepo := storage.NewGormFriendshipRepository(db)

	groups, err := groupRepo.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取群组列表失败: %w", err)
	}

	var problems []string
	seen := make(map[string]uint)
	for _, g := range groups {
		if !g.IsDirectMessage {
			continue
		}
		ids, err := groupRepo.GetMemberIDs(ctx, g.ID)
		if err != nil {
			return nil, fmt.Errorf("获取群组 %d 成员失败: %w", g.ID, err)
		}
		if len(ids) != 2 {
			problems = append(problems, fmt.Sprintf("群组 %d: 私聊群组有 %d 名成员", g.ID, len(ids)))
			continue
		}
		key := models.DirectMessageKey(ids[0], ids[1])
		if g.DirectKey == nil || *g.DirectKey != key {
			problems = append(problems, fmt.Sprintf("群组 %d: 私聊键与成员 %v 不符", g.ID, ids))
		}
		if other, dup := seen[key]; dup {
			problems = append(problems, fmt.Sprintf("群组 %d: 与群组 %d 是同一对用户的私聊", g.ID, other))
		}
		seen[key] = g.ID

		friends, err := friendshipRepo.AreUsersFriends(ctx, ids[0], ids[1])
		if err != nil {
			return nil, fmt.Errorf("检查好友关系失败: %w", err)
		}
		if !friends {
			problems = append(problems, fmt.Sprintf("群组 %d: 成员 %d 与 %d 不是好友", g.ID, ids[0], ids[1]))
		}
	}
	return problems, nil
}
