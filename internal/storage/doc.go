// Package storage 提供各后端的目录列举与上传适配器：本地目录（go-billy）、
// S3 兼容对象存储（minio-go）与云端资源代理（HTTP JSON API），并由 Router
// 按目录引用的后端类型分发。
package storage
