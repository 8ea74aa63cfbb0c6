package version

// 构建信息，BuildTime/GitCommit/GoVersion 由 ldflags 注入
var (
	Version   = "0.3.0" // 版本号 -- 发布时候更新版本号
	BuildTime string
	GitCommit string
	GoVersion string
)

func GetVersion() string {
	return Version
}
