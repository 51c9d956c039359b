package cmd

import (
	"context"
	"fmt"
	"time"

	"CineBot/core/resolver"
	"CineBot/core/selection"

	"github.com/spf13/cobra"
)

var resolveTimeout time.Duration

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "解析内容链接并列出清晰度和音轨",
	Long:  `不经过 Telegram，直接解析一个内容链接，输出标题、manifest 地址、可选清晰度和音轨。刷新的 token 会写回 TOKEN_FILE。`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		ref, err := resolver.ParseContentURL(args[0], cfg.DomainMarker)
		if err != nil {
			return err
		}

		tokens, err := newTokenStore(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), resolveTimeout)
		defer cancel()

		client := newPlatformClient(cfg)
		res, err := resolver.NewResolver(client, tokens).Resolve(ctx, ref.ID, tokens.Token())
		if err != nil {
			return err
		}
		manifest, err := resolver.LoadManifest(ctx, client, res)
		if err != nil {
			return err
		}

		fmt.Printf("标题: %s\n", res.Metadata.Title)
		fmt.Printf("内容ID: %s\n", ref.ID)
		fmt.Printf("Manifest: %s\n", res.Manifest.URL)

		fmt.Printf("\n清晰度 (%d):\n", len(manifest.Qualities))
		for _, q := range manifest.Qualities {
			fmt.Printf("  %-20s %s\n", q.Label(), selection.QualityAction{Height: q.Height, Bitrate: q.BitrateMbps}.Encode())
		}

		fmt.Printf("\n音轨 (%d):\n", len(manifest.AudioTracks))
		for _, t := range manifest.AudioTracks {
			fmt.Printf("  %-40s id=%s\n", selection.TrackLabel(t), t.ID)
		}
		if len(manifest.Qualities) == 0 {
			fmt.Println("\n未找到视频清晰度")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().DurationVarP(&resolveTimeout, "timeout", "t", time.Minute, "整个解析过程的超时时间")

	resolveCmd.Example = `  # 解析一个电影链接
  cinebot resolve https://www.jiocinema.com/movies/some-movie/3760812`
}
