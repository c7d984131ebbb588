// Package backend 负责把目录引用（如 "[data] images"、"[s3:bucket] maps"、
// "[forgevtt] tokens"）解析为 DirectorySpec，并按后端类型计算文件的规范 URL。
//
// 后端类型是一个封闭枚举：新增后端需要同时修改 Parse 的来源映射与 Resolver
// 的 switch 分支。目录列举、身份查询、bundle 判定都以接口形式注入，
// 因此解析器可以脱离宿主环境单独测试。
package backend
