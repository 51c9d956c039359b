package cmd

import (
	"fmt"
	"time"

	"CineBot/core/progress"
	"CineBot/storage"

	"github.com/spf13/cobra"
)

var (
	minioDelete    string
	minioOlderThan time.Duration
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "管理归档的视频",
	Long:  `列出 MinIO 中归档的超大视频，支持删除单个对象或清理过期归档。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		ctx := cmd.Context()

		store, err := storage.NewArtifactStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("无法连接到MinIO: %w", err)
		}

		switch {
		case minioDelete != "":
			if err := store.Remove(ctx, minioDelete); err != nil {
				return fmt.Errorf("删除失败: %w", err)
			}
			fmt.Printf("已删除: %s\n", minioDelete)
		case minioOlderThan > 0:
			n, err := store.Prune(ctx, time.Now().Add(-minioOlderThan))
			if err != nil {
				return err
			}
			fmt.Printf("已清理 %d 个归档\n", n)
		default:
			objects, err := store.List(ctx)
			if err != nil {
				return fmt.Errorf("列出文件失败: %w", err)
			}
			var total int64
			for _, obj := range objects {
				total += obj.Size
				fmt.Printf("%s  %10s  %s\n", obj.LastModified.Format("2006-01-02 15:04"), progress.FormatSize(obj.Size), obj.Name)
			}
			fmt.Printf("\n共 %d 个对象, %s\n", len(objects), progress.FormatSize(total))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioDelete, "delete", "d", "", "删除指定对象")
	minioCmd.Flags().DurationVar(&minioOlderThan, "older-than", 0, "删除早于该时长的归档，如 168h")

	minioCmd.Example = `  # 列出所有归档
  cinebot minio

  # 删除一个归档
  cinebot minio -d "archive/3760812/Movie.1080p.mkv"

  # 清理一周前的归档
  cinebot minio --older-than 168h`
}
