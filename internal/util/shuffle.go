package util

import "math/rand"

// ShuffleOptions 重排一道题的选项并返回正确选项的新下标。题库生成和
// 作答快照都走这一个入口，选项洗牌只在这两个边界各发生一次。
func ShuffleOptions(options []string, correct int) ([]string, int) {
	shuffled := make([]string, len(options))
	copy(shuffled, options)

	perm := rand.Perm(len(shuffled))
	out := make([]string, len(shuffled))
	newCorrect := correct
	for from, to := range perm {
		out[to] = shuffled[from]
		if from == correct {
			newCorrect = to
		}
	}
	return out, newCorrect
}

// ShuffleIndexes 返回 n 个下标的随机排列，用于打乱作答快照的题目顺序。
func ShuffleIndexes(n int) []int {
	return rand.Perm(n)
}
