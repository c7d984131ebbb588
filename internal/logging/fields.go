package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// LookupFields 提供目录引用/文件名/后端类型字段，供存在性检查与 URL 解析日志复用。
func LookupFields(action, dirRef, filename, kind string) logrus.Fields {
	fields := logrus.Fields{
		"action":  action,
		"dir_ref": dirRef,
		"backend": kind,
	}
	if filename != "" {
		fields["filename"] = filename
	}
	return fields
}

// ScanFields 描述一次目录列举的结果规模。
func ScanFields(dirRef, kind string, files, dirs int, bundle bool) logrus.Fields {
	return logrus.Fields{
		"action":  "scan",
		"dir_ref": dirRef,
		"backend": kind,
		"files":   files,
		"dirs":    dirs,
		"bundle":  bundle,
	}
}
