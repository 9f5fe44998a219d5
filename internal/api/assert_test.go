package api

import "github.com/sekai02/photocat/pkg/photocat"

var _ photocat.API = (*Service)(nil)
