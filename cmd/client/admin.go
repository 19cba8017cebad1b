package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"zg-client/internal/client"
	"zg-client/internal/domain"
	"zg-client/internal/view"
)

const adminUsage = `admin commands:
  admin nfts | codes | tasks
  admin balance <username> <balance>
  admin code <reward> <maxUses> [code]
  admin task <reward> <link> <title> [description]
  admin nft <price> <image> <name> [amount]
  admin delete-nft | delete-code | delete-task <id>
`

func runAdmin(ctx context.Context, v *view.Admin, args []string) error {
	if len(args) == 0 {
		fmt.Print(adminUsage)
		return nil
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "nfts", "codes", "tasks":
		if err := v.Load(ctx); err != nil {
			return err
		}
		switch cmd {
		case "nfts":
			return show(v.NFTs())
		case "codes":
			return show(v.Codes())
		}
		return show(v.Tasks())

	case "balance":
		if len(rest) < 1 {
			return client.Invalid("username", "username is required")
		}
		n, err := intArg(rest, 1)
		if err != nil {
			return err
		}
		resp, err := v.UpdateBalance(ctx, rest[0], n)
		if err != nil {
			return err
		}
		return show(resp)

	case "code":
		reward, err := intArg(rest, 0)
		if err != nil {
			return err
		}
		maxUses, err := intArg(rest, 1)
		if err != nil {
			return err
		}
		req := domain.CodeCreateRequest{Reward: reward, MaxUses: int(maxUses)}
		if len(rest) > 2 {
			req.Code = rest[2]
		}
		code, err := v.CreateCode(ctx, req)
		if err != nil {
			return err
		}
		return show(code)

	case "task":
		reward, err := intArg(rest, 0)
		if err != nil {
			return err
		}
		if len(rest) < 3 {
			return client.Invalid("title", "title is required")
		}
		req := domain.TaskCreateRequest{Reward: reward, Link: rest[1], Title: rest[2], Description: rest[2]}
		if len(rest) > 3 {
			req.Description = strings.Join(rest[3:], " ")
		}
		return v.CreateTask(ctx, req)

	case "nft":
		price, err := intArg(rest, 0)
		if err != nil {
			return err
		}
		if len(rest) < 3 {
			return client.Invalid("name", "name is required")
		}
		data, err := os.ReadFile(rest[1])
		if err != nil {
			return client.Invalid("image", fmt.Sprintf("cannot read %s", rest[1]))
		}
		req := domain.NFTCreateRequest{
			Name:        rest[2],
			Description: rest[2],
			Price:       price,
			Image:       &domain.Upload{FileName: filepath.Base(rest[1]), Data: data},
		}
		if len(rest) > 3 {
			amount, err := strconv.Atoi(rest[3])
			if err != nil {
				return client.Invalid("amount", fmt.Sprintf("%q is not a number", rest[3]))
			}
			req.Amount = amount
		}
		return v.CreateNFT(ctx, req)

	case "delete-nft", "delete-code", "delete-task":
		id, err := intArg(rest, 0)
		if err != nil {
			return err
		}
		switch cmd {
		case "delete-nft":
			return v.DeleteNFT(ctx, id)
		case "delete-code":
			return v.DeleteCode(ctx, id)
		}
		return v.DeleteTask(ctx, id)
	}

	return fmt.Errorf("unknown admin command %q", cmd)
}
