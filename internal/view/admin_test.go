package view

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"zg-client/internal/client"
	"zg-client/internal/domain"
)

var pngImage = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00"), make([]byte, 64)...)

func TestAdmin_DeniedForRegularUser(t *testing.T) {
	h := newHarness(t)
	u := h.signIn(7001, "regular", 0)

	adm := NewAdmin(u.deps)
	defer adm.Close()

	if err := adm.Load(context.Background()); !errors.Is(err, client.ErrForbidden) {
		t.Errorf("Load() error = %v, want %v", err, client.ErrForbidden)
	}
	if !adm.Denied() {
		t.Error("Denied() = false")
	}
	if n := h.srv.Hits("GET", "/admin/nft/all"); n != 0 {
		t.Errorf("GET /admin/nft/all hits = %d, want 0", n)
	}
}

func TestAdmin_ServerForbiddenLatches(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.signIn(7002, "pretender", 0)

	deps := u.deps
	deps.Profile = stubProfile{p: &domain.UserProfile{ID: u.id, Username: "pretender", Role: domain.RoleAdmin}}

	adm := NewAdmin(deps)
	defer adm.Close()

	err := adm.Load(ctx)
	if !errors.Is(err, client.ErrForbidden) {
		t.Fatalf("Load() error = %v, want %v", err, client.ErrForbidden)
	}
	if got := client.Message(err); got != "no admin rights" {
		t.Errorf("Message() = %q", got)
	}
	if !adm.Denied() {
		t.Fatal("Denied() = false after a 403")
	}

	if err := adm.DeleteCode(ctx, 1); !errors.Is(err, client.ErrForbidden) {
		t.Errorf("DeleteCode() error = %v, want %v", err, client.ErrForbidden)
	}
	if _, err := adm.UpdateBalance(ctx, "pretender", 1000); !errors.Is(err, client.ErrForbidden) {
		t.Errorf("UpdateBalance() error = %v, want %v", err, client.ErrForbidden)
	}
	if n := h.srv.Hits("DELETE", "/admin/code/delete") + h.srv.Hits("POST", "/admin/user/balance"); n != 0 {
		t.Errorf("admin mutations reached the server %d times after the 403", n)
	}
}

func TestAdmin_Manage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	boss := h.signInAdmin(7100, "boss")
	h.signIn(7101, "player", 10)

	adm := NewAdmin(boss.deps)
	defer adm.Close()
	if err := adm.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	t.Run("codes", func(t *testing.T) {
		code, err := adm.CreateCode(ctx, domain.CodeCreateRequest{Reward: 50, MaxUses: 3})
		if err != nil {
			t.Fatalf("CreateCode() error = %v", err)
		}
		if !strings.HasPrefix(code.Code, "CODE") || len(code.Code) != 12 {
			t.Errorf("generated code = %q, want CODE + 8 characters", code.Code)
		}
		if len(adm.Codes()) != 1 {
			t.Fatalf("Codes() = %d, want 1", len(adm.Codes()))
		}
		if err := adm.DeleteCode(ctx, code.ID); err != nil {
			t.Fatalf("DeleteCode() error = %v", err)
		}
		if len(adm.Codes()) != 0 {
			t.Errorf("Codes() after delete = %d, want 0", len(adm.Codes()))
		}
		if _, err := adm.CreateCode(ctx, domain.CodeCreateRequest{Reward: 0, MaxUses: 3}); !errors.Is(err, client.ErrValidation) {
			t.Errorf("CreateCode() zero reward error = %v, want %v", err, client.ErrValidation)
		}
	})

	t.Run("tasks", func(t *testing.T) {
		err := adm.CreateTask(ctx, domain.TaskCreateRequest{Title: "Follow", Description: "Follow us", Link: "https://t.me/zg", Reward: 20})
		if err != nil {
			t.Fatalf("CreateTask() error = %v", err)
		}
		tasks := adm.Tasks()
		if len(tasks) != 1 || tasks[0].Title != "Follow" {
			t.Fatalf("Tasks() = %+v", tasks)
		}
		if err := adm.DeleteTask(ctx, tasks[0].ID); err != nil {
			t.Fatalf("DeleteTask() error = %v", err)
		}
		if len(adm.Tasks()) != 0 {
			t.Errorf("Tasks() after delete = %d, want 0", len(adm.Tasks()))
		}
	})

	t.Run("balance", func(t *testing.T) {
		resp, err := adm.UpdateBalance(ctx, " player ", 5000)
		if err != nil {
			t.Fatalf("UpdateBalance() error = %v", err)
		}
		if resp.Username != "player" || resp.NewBalance != 5000 {
			t.Errorf("UpdateBalance() = %+v", resp)
		}
	})

	t.Run("collectibles", func(t *testing.T) {
		err := adm.CreateNFT(ctx, domain.NFTCreateRequest{
			Name:        "Comet",
			Description: "Leaves a trail",
			Price:       400,
			Amount:      2,
			Image:       &domain.Upload{FileName: "Comet Art.png", Data: pngImage},
		})
		if err != nil {
			t.Fatalf("CreateNFT() error = %v", err)
		}

		nfts := adm.NFTs()
		if len(nfts) != 2 {
			t.Fatalf("NFTs() = %d, want 2", len(nfts))
		}
		for _, n := range nfts {
			if n.Price != 400 || n.GradientColor1 != defaultGradient1 || n.GradientColor2 != defaultGradient2 {
				t.Errorf("created NFT = %+v", n)
			}
			if !strings.HasPrefix(n.ImageURL, "/api/uploads/") || !strings.HasSuffix(n.ImageURL, ".png") {
				t.Errorf("ImageURL = %q", n.ImageURL)
			}
		}

		if err := adm.DeleteNFT(ctx, nfts[0].ID); err != nil {
			t.Fatalf("DeleteNFT() error = %v", err)
		}
		if len(adm.NFTs()) != 1 {
			t.Errorf("NFTs() after delete = %d, want 1", len(adm.NFTs()))
		}
	})

	if adm.Denied() {
		t.Error("Denied() = true for an admin")
	}
}

func TestImagePart(t *testing.T) {
	tests := []struct {
		name     string
		upload   *domain.Upload
		wantName string
		wantErr  bool
	}{
		{name: "missing", upload: nil, wantErr: true},
		{name: "empty", upload: &domain.Upload{FileName: "a.png"}, wantErr: true},
		{name: "not an image", upload: &domain.Upload{FileName: "a.png", Data: []byte("hello, world")}, wantErr: true},
		{
			name:    "too large",
			upload:  &domain.Upload{FileName: "a.png", Data: append(append([]byte{}, pngImage...), bytes.Repeat([]byte{0}, domain.MaxImageSize)...)},
			wantErr: true,
		},
		{name: "slugged", upload: &domain.Upload{FileName: "My Cool Pic.PNG", Data: pngImage}, wantName: "my-cool-pic.png"},
		{name: "extension from content", upload: &domain.Upload{FileName: "picture.jpg", Data: pngImage}, wantName: "picture.png"},
		{name: "name fallback", upload: &domain.Upload{Data: pngImage}, wantName: "golden-frog.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part, err := imagePart("Golden Frog", tt.upload)
			if tt.wantErr {
				if !errors.Is(err, client.ErrValidation) {
					t.Errorf("imagePart() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("imagePart() error = %v", err)
			}
			if part.FileName != tt.wantName {
				t.Errorf("FileName = %q, want %q", part.FileName, tt.wantName)
			}
			if part.ContentType != "image/png" || part.Field != "image" {
				t.Errorf("part = %s/%s", part.Field, part.ContentType)
			}
		})
	}
}
