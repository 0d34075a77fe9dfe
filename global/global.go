package global

/*
 *	节点用到的全局变量
 *	以下参数根据命令行参数确定，不要重新赋值
 */

var RootDir string // 项目根目录
var Network string // 当前网络名（hardhat、localhost、goerli……）
