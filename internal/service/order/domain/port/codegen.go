package port

// CodeGenerator 生成提货核销码
type CodeGenerator interface {
	NewCode() (string, error)
}
