package dialer

import (
	"bufio"
	"io"
	"net"
	"time"
)

// 面向探测器的有界读写原语
// 每个原语独立设置 deadline，单步超时不会累加到整个连接生命周期

// LineReader 带超时的按行读取器
// 包装同一个 bufio.Reader，跨多次 ReadLine 不丢缓冲数据
type LineReader struct {
	conn net.Conn
	br   *bufio.Reader
}

func NewLineReader(conn net.Conn) *LineReader {
	return &LineReader{
		conn: conn,
		br:   bufio.NewReader(conn),
	}
}

// ReadLine 读取一行 (去掉行尾 \r\n)，超时返回错误
func (lr *LineReader) ReadLine(timeout time.Duration) (string, error) {
	if err := lr.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	line, err := lr.br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return trimEOL(line), nil
}

// WriteAll 写入全部数据，超时返回错误
func WriteAll(conn net.Conn, data []byte, timeout time.Duration) error {
	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err := conn.Write(data)
	return err
}

// ReadSome 最多读取 max 字节，读到多少算多少
// 对端发完就断 (四字命令类协议) 时返回已读数据和 nil
func ReadSome(conn net.Conn, max int, timeout time.Duration) ([]byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	buf := make([]byte, max)
	n, err := conn.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	return nil, err
}

// ReadUntilClose 持续读取直到对端关闭、读满 max 或超时
// 超时前已读到数据时不报错，把数据还给调用方判定
func ReadUntilClose(conn net.Conn, max int, timeout time.Duration) ([]byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	var out []byte
	buf := make([]byte, 1024)
	for len(out) < max {
		n, err := conn.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			if err == io.EOF || len(out) > 0 {
				return out, nil
			}
			return nil, err
		}
	}
	return out[:max], nil
}

// ReadFull 精确读取 n 字节 (定长二进制帧)
func ReadFull(conn net.Conn, n int, timeout time.Duration) ([]byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
