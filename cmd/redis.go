package cmd

import (
	"fmt"

	"CineBot/cache"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试",
	Long:  `测试Redis连接是否成功，进行基本读写操作，并统计当前会话数量。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		fmt.Printf("Redis配置: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := cache.ConnectRedis(cfg); err != nil {
			return fmt.Errorf("无法连接到Redis: %w", err)
		}
		defer cache.CloseRedis()
		fmt.Println("Redis连接成功！")

		if err := cache.CheckRedis(cmd.Context()); err != nil {
			return fmt.Errorf("Redis操作测试失败: %w", err)
		}
		fmt.Println("Redis基本操作测试成功！")

		n, err := cache.NewSessionCache(cache.RedisClient, cfg.SessionTTL).Count(cmd.Context())
		if err != nil {
			return fmt.Errorf("统计会话失败: %w", err)
		}
		fmt.Printf("当前会话数量: %d\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
